package processor

import (
	"context"
	"encoding/json"

	"github.com/MikeSquared-Agency/honeypot/internal/hermes"
)

// HandleInbound is the NATS handler for swarm.honeypot.message.received.
// The reply goes out on the reply-ready subject and, for request-reply
// callers, on the message's reply subject too.
func (p *Processor) HandleInbound(msg hermes.Message) {
	var req Request
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		p.logger.Error("failed to parse inbound message", "subject", msg.Subject, "error", err)
		return
	}
	if err := req.Validate(); err != nil {
		p.logger.Warn("invalid inbound message", "subject", msg.Subject, "error", err)
		return
	}

	resp := p.Process(context.Background(), req)
	if p.hermes == nil {
		return
	}

	ev := hermes.ReplyReady{SessionID: req.SessionID, Status: resp.Status, Reply: resp.Reply}
	if err := p.hermes.Publish(hermes.SubjectReplyReady, ev); err != nil {
		p.logger.Error("failed to publish reply", "session_id", req.SessionID, "error", err)
	}
	if msg.Reply != "" {
		if err := p.hermes.Publish(msg.Reply, ev); err != nil {
			p.logger.Error("failed to answer request", "session_id", req.SessionID, "error", err)
		}
	}
}
