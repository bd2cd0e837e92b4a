package mcp

// notificationSender is the slice of *server.MCPServer the notifier
// needs; narrowed to an interface so tests can capture payloads.
type notificationSender interface {
	SendNotificationToSpecificClient(sessionID string, method string, params map[string]any) error
}

// ProgressNotifier pushes run progress to the MCP session that started
// the run. It implements streaming.ProgressSink; delivery is
// best-effort, and a session that disconnects mid-run never interrupts
// the run itself.
type ProgressNotifier struct {
	sender    notificationSender
	sessionID string
	workflow  string
}

// NewProgressNotifier creates a notifier bound to one session and run.
func NewProgressNotifier(sender notificationSender, sessionID, workflow string) *ProgressNotifier {
	return &ProgressNotifier{sender: sender, sessionID: sessionID, workflow: workflow}
}

// Line pushes one complete progress line.
func (n *ProgressNotifier) Line(text string) {
	n.send("line", text)
}

// Chunk pushes a fragment of streamed model output.
func (n *ProgressNotifier) Chunk(text string) {
	n.send("chunk", text)
}

func (n *ProgressNotifier) send(kind, text string) {
	// Errors (including an expired session) are dropped: progress
	// notifications must never affect the run producing them.
	_ = n.sender.SendNotificationToSpecificClient(n.sessionID, "notifications/message", map[string]any{
		"workflow": n.workflow,
		"kind":     kind,
		"text":     text,
	})
}
