package dispatch

import "github.com/labstack/gommon/log"

// Dialer places a phone call to the responding driver. Calls are
// fire-and-forget; the outcome is not tracked.
type Dialer interface {
	Dial(phone string)
}

// LogDialer records call requests in the log. It stands in for a telephony
// integration.
type LogDialer struct {
	logger *log.Logger
}

// NewLogDialer creates a LogDialer.
func NewLogDialer(logger *log.Logger) *LogDialer {
	return &LogDialer{logger: logger}
}

// Dial logs the number being called.
func (d *LogDialer) Dial(phone string) {
	d.logger.Infof("calling driver at %s", phone)
}
