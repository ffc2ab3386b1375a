package dispatch

import (
	"strings"

	"github.com/mcoot/rpsarbiter/internal/model"
	"github.com/mcoot/rpsarbiter/internal/services/registry"
)

const (
	replyUnknownSender = "WHO ARE YOU?!"
	replyNotExist      = "YOU DO NOT EXIST!"
	replyNone          = "NONE"
)

func (s *Service) handleRegister(req Request) Result {
	var res Result
	switch s.registry.Register(req.Sender, req.At) {
	case registry.Created:
		res.reply(req.Sender, "OK!")
		res.emit(s.event(req, model.EventPlayerRegistered, "", req.Sender, nil))
	case registry.AlreadyRegistered:
		res.reply(req.Sender, "OK!!")
	case registry.RaceLost:
		res.reply(req.Sender, "OK?!")
	}
	return res
}

func (s *Service) handleHi(req Request) Result {
	var res Result
	res.reply(req.Sender, "Hi!")
	return res
}

func (s *Service) handlePong(req Request) Result {
	var res Result
	p := s.registry.Touch(req.Sender, req.At)
	if p == nil {
		res.reply(req.Sender, replyUnknownSender)
		return res
	}
	p.SetPingOutstanding(false)
	res.reply(req.Sender, "ACK!")
	return res
}

func (s *Service) handleStat(req Request) Result {
	var res Result
	p := s.registry.Lookup(req.Sender)
	if p == nil {
		res.reply(req.Sender, replyNotExist)
		return res
	}
	res.reply(req.Sender, FormatStats(p.Stats()))
	return res
}

func (s *Service) handleListMatches(req Request) Result {
	var res Result
	p := s.registry.Lookup(req.Sender)
	if p == nil {
		res.reply(req.Sender, replyNotExist)
		return res
	}

	open := p.OpenMatches()
	if len(open) == 0 {
		res.reply(req.Sender, replyNone)
		return res
	}
	ids := make([]string, len(open))
	for i, id := range open {
		ids[i] = string(id)
	}
	res.reply(req.Sender, strings.Join(ids, ","))
	return res
}

func (s *Service) handleLeaderboard(req Request) Result {
	var res Result
	board := s.registry.Leaderboard(s.cfg.LeaderboardSize)
	if len(board) == 0 {
		res.reply(req.Sender, replyNone)
		return res
	}
	for i, st := range board {
		res.reply(req.Sender, FormatLeaderboardEntry(i+1, st))
	}
	return res
}

func (s *Service) handleMatchLog(req Request) Result {
	var res Result
	res.reply(req.Sender, "SORRY")
	return res
}

// handlePing marks a player as awaiting a PONG and pings them. Only the
// arbiter's own sweep issues it.
func (s *Service) handlePing(req Request) Result {
	var res Result
	if !s.trusted(req) {
		res.reply(req.Sender, replyDenied)
		return res
	}
	if len(req.Args) != 1 {
		return res
	}
	p := s.registry.Lookup(req.Args[0])
	if p == nil {
		return res
	}
	p.SetPingOutstanding(true)
	res.reply(p.Name, "PING")
	res.emit(s.event(req, model.EventPingSent, "", p.Name, nil))
	return res
}
