package dispatch

import (
	"errors"
	"log/slog"

	"github.com/mcoot/rpsarbiter/internal/model"
)

const (
	replyDenied   = "DENIED!"
	replyResolved = "MATCH IS ALREADY RESOLVED."
)

// handleNewMatch opens a match whose id is the event id of this line
func (s *Service) handleNewMatch(req Request) Result {
	var res Result
	if !s.trusted(req) {
		res.reply(req.Sender, replyDenied)
		return res
	}
	if len(req.Args) != 3 {
		s.logger.Warn("malformed NEWMATCH", slog.String("event_id", req.EventID))
		return res
	}

	mode, p1, p2 := req.Args[0], req.Args[1], req.Args[2]
	id := model.MatchID(req.EventID)
	m, err := s.matches.Create(id, mode, p1, p2, req.At)
	if err != nil {
		s.logger.Warn("match not created",
			slog.String("match_id", string(id)),
			slog.String("error", err.Error()),
		)
		return res
	}

	s.logger.Info("match created",
		slog.String("match_id", string(id)),
		slog.String("player1", p1),
		slog.String("player2", p2),
	)
	res.reply(p1, "MATCH "+mode+" "+string(id)+" "+p2)
	res.reply(p2, "MATCH "+mode+" "+string(id)+" "+p1)
	res.emit(s.event(req, model.EventMatchCreated, id, "", model.MatchCreatedPayload{
		Mode:    m.Mode,
		Player1: p1,
		Player2: p2,
	}))
	return res
}

// handleMatch takes a move. When it completes the match the result goes
// out to both players with the acknowledgement.
func (s *Service) handleMatch(req Request) Result {
	var res Result
	if s.registry.Lookup(req.Sender) == nil {
		res.reply(req.Sender, replyUnknownSender)
		return res
	}
	if len(req.Args) != 2 {
		res.reply(req.Sender, "NO")
		return res
	}
	if !s.codec.Valid(req.Args[0]) {
		res.reply(req.Sender, "NOPE")
		return res
	}
	move, err := model.ParseMove(req.Args[1])
	if err != nil {
		res.reply(req.Sender, "NOPE!")
		return res
	}

	id := model.MatchID(req.Args[0])
	m, err := s.matches.SubmitMove(id, req.Sender, move)
	switch {
	case errors.Is(err, model.ErrMatchNotFound):
		res.reply(req.Sender, "INVALID!")
		return res
	case errors.Is(err, model.ErrMatchResolved):
		res.reply(req.Sender, replyResolved)
		return res
	case errors.Is(err, model.ErrNotInMatch):
		res.reply(req.Sender, "HAHA YOU FUNNY!")
		return res
	case errors.Is(err, model.ErrAlreadyMoved):
		res.reply(req.Sender, "NICETRY!")
		return res
	case err != nil:
		return res
	}

	res.reply(req.Sender, "OK!")
	res.emit(s.event(req, model.EventMoveAccepted, id, req.Sender, nil))

	if outcome, ok := s.matches.TryResolve(m, req.At); ok {
		s.resolved(&res, req, m, outcome)
	}
	return res
}

// handleResultMatch applies a resolution decided by the arbiter's sweep
func (s *Service) handleResultMatch(req Request) Result {
	var res Result
	if !s.trusted(req) {
		res.reply(req.Sender, replyDenied)
		return res
	}
	if len(req.Args) < 2 {
		s.logger.Warn("malformed RESULTMATCH", slog.String("event_id", req.EventID))
		return res
	}

	outcome, err := model.ParseOutcome(req.Args[1:])
	if err != nil {
		s.logger.Warn("bad RESULTMATCH outcome",
			slog.String("event_id", req.EventID),
			slog.String("error", err.Error()),
		)
		return res
	}

	m, applied, ok, err := s.matches.ApplyResult(model.MatchID(req.Args[0]), outcome)
	if err != nil {
		s.logger.Warn("result not applied",
			slog.String("match_id", req.Args[0]),
			slog.String("error", err.Error()),
		)
		return res
	}
	if !ok {
		// Already resolved: repeat the standing result, without touching
		// counters or emitting a second event
		text := FormatResult(m.ID, applied)
		res.reply(m.Player1, text)
		res.reply(m.Player2, text)
		return res
	}
	s.resolved(&res, req, m, applied)
	return res
}

func (s *Service) resolved(res *Result, req Request, m *model.Match, outcome model.Outcome) {
	s.logger.Info("match resolved",
		slog.String("match_id", string(m.ID)),
		slog.String("outcome", outcome.String()),
	)
	text := FormatResult(m.ID, outcome)
	res.reply(m.Player1, text)
	res.reply(m.Player2, text)
	res.emit(s.event(req, model.EventMatchResolved, m.ID, outcome.Winner, model.MatchResolvedPayload{
		Mode:    m.Mode,
		Player1: m.Player1,
		Player2: m.Player2,
		Outcome: outcome,
	}))
}
