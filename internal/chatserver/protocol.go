package chatserver

import (
	"strings"

	"golang.org/x/time/rate"
)

// protocol drives one session through AwaitingNickname, Active and Closed.
// It runs on the session's reader goroutine.
type protocol struct {
	session *Session
	hub     *Hub
	limiter *rate.Limiter

	joined         bool
	announcedLeave bool
}

func newProtocol(session *Session, hub *Hub, limiter *rate.Limiter) *protocol {
	return &protocol{session: session, hub: hub, limiter: limiter}
}

// run returns once the session is closed.
func (p *protocol) run() {
	s := p.session
	defer p.finish()

	nick, err := p.negotiateNickname()
	if err != nil {
		p.logReadError("nickname negotiation", err)
		return
	}

	s.setNickname(nick)
	if !s.activate() {
		return
	}
	p.hub.Register(s)
	p.joined = true
	p.hub.Broadcast(joinNotice(s.Label()), s)
	s.log.Info("Joined as %q from %s (active: %d)", nick, s.RemoteAddr(), p.hub.Count())

	for {
		line, err := s.transport.ReadLine()
		if err != nil {
			p.logReadError("read", err)
			return
		}
		if !p.handleLine(line) {
			return
		}
	}
}

// negotiateNickname prompts until the peer offers a non-blank nickname.
func (p *protocol) negotiateNickname() (string, error) {
	s := p.session
	if !s.Send(PromptNickname) {
		return "", newError(ErrorTransport, "session closed before prompt")
	}

	for {
		line, err := s.transport.ReadLine()
		if err != nil {
			return "", err
		}

		nick, err := parseNickname(line)
		if err == nil {
			return nick, nil
		}
		s.log.Debug("Nickname rejected: %v", err)

		if !s.Send(PromptRetry) {
			return "", newError(ErrorTransport, "session closed during negotiation")
		}
	}
}

func parseNickname(line string) (string, error) {
	nick := strings.TrimSpace(line)
	if nick == "" {
		return "", newError(ErrorProtocol, "blank nickname")
	}
	return nick, nil
}

// handleLine processes one line from an Active session. It returns false when
// the session should end.
func (p *protocol) handleLine(line string) bool {
	switch {
	// The prefix is matched before trimming so "/nick " alone is a usage error.
	case strings.HasPrefix(line, commandNickPrefix):
		p.handleNick(line[len(commandNickPrefix):])
	case strings.TrimSpace(line) == commandQuit:
		p.announceLeave()
		return false
	default:
		p.handleChat(line)
	}
	return p.session.State() == StateActive
}

func (p *protocol) handleNick(arg string) {
	s := p.session
	newNick := strings.TrimSpace(arg)
	if newNick == "" {
		s.Send(ReplyNickUsage)
		return
	}

	oldNick := s.Nickname()
	oldLabel := s.Label()
	s.setNickname(newNick)
	p.hub.Broadcast(renameNotice(oldLabel, s.Label()), s)
	s.Send(renameReply(newNick))
	s.log.Info("Renamed %q -> %q", oldNick, newNick)
}

func (p *protocol) handleChat(line string) {
	s := p.session
	if p.limiter != nil && !p.limiter.Allow() {
		s.log.Debug("Rate limited, dropping line")
		s.Send(ReplyRateLimited)
		return
	}
	p.hub.Broadcast(chatLine(s.Label(), line), s)
}

func (p *protocol) announceLeave() {
	if p.announcedLeave {
		return
	}
	p.announcedLeave = true
	p.hub.Broadcast(leaveNotice(p.session.Label()), p.session)
}

// finish closes the session. A peer that joined and vanished without /quit
// still gets a leave notice.
func (p *protocol) finish() {
	s := p.session
	p.hub.Unregister(s)
	if p.joined {
		p.announceLeave()
		s.log.Info("%q left (active: %d)", s.Nickname(), p.hub.Count())
	}
	s.Close()
}

func (p *protocol) logReadError(stage string, err error) {
	s := p.session
	switch {
	case isExpectedDisconnect(err), IsTransportFault(err):
		s.log.Debug("%s ended: %v", stage, err)
	default:
		s.log.Warn("%s failed: %v", stage, wrapError(ErrorTransport, stage, err))
	}
}
