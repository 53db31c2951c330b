package tui

import "sync"

// Notifier collects session notices and alerts raised from command
// goroutines until the update loop takes them.
type Notifier struct {
	mu     sync.Mutex
	notice string
	alert  string
}

// NewNotifier creates an empty notifier
func NewNotifier() *Notifier {
	return &Notifier{}
}

// Notice records a notice, replacing an untaken one
func (n *Notifier) Notice(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notice = msg
}

// Alert records an alert, replacing an untaken one
func (n *Notifier) Alert(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alert = msg
}

// take returns and clears the pending notice and alert
func (n *Notifier) take() (notice, alert string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	notice, alert = n.notice, n.alert
	n.notice, n.alert = "", ""
	return notice, alert
}
