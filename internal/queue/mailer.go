package queue

import (
	"go.uber.org/zap"
)

// Mailer delivers one email.
type Mailer interface {
	Send(to, subject, body string) error
}

// ConsoleMailer writes emails to the log instead of sending them. It is
// the default delivery backend outside production.
type ConsoleMailer struct {
	from   string
	logger *zap.SugaredLogger
}

// NewConsoleMailer creates a ConsoleMailer
func NewConsoleMailer(from string, logger *zap.SugaredLogger) *ConsoleMailer {
	return &ConsoleMailer{from: from, logger: logger}
}

func (m *ConsoleMailer) Send(to, subject, body string) error {
	m.logger.Infow("email", "from", m.from, "to", to, "subject", subject, "body", body)
	return nil
}

// SMSSender delivers one text message.
type SMSSender interface {
	Send(to, message string) error
}

// ConsoleSMSSender writes messages to the log instead of sending them.
type ConsoleSMSSender struct {
	logger *zap.SugaredLogger
}

// NewConsoleSMSSender creates a ConsoleSMSSender
func NewConsoleSMSSender(logger *zap.SugaredLogger) *ConsoleSMSSender {
	return &ConsoleSMSSender{logger: logger}
}

func (s *ConsoleSMSSender) Send(to, message string) error {
	s.logger.Infow("sms", "to", to, "message", message)
	return nil
}

// NewSMSSender selects the SMS backend named in configuration. Providers
// without credentials wired in fall back to the console sender so the
// worker keeps running in every environment.
func NewSMSSender(provider string, logger *zap.SugaredLogger) SMSSender {
	switch provider {
	case "console", "":
		return NewConsoleSMSSender(logger)
	default:
		logger.Warnw("unknown sms provider, using console", "provider", provider)
		return NewConsoleSMSSender(logger)
	}
}
