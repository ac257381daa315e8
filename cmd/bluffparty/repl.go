package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/DoyleJ11/bluffparty/internal/game"
)

var errQuit = errors.New("quit")

const help = `commands:
  bot [name] [beginner|pro|troll]   add a bot
  troll on|off   hp on|off   rules on|off
  start [classic|host|ai]           start the game
  gm QUESTION | CORRECT [| FAKE]    submit the round as game master
  timer SECONDS                     start the answer timer
  fake TEXT                         submit your lie
  vote N                            vote for answer N
  reveal N   award PLAYER   score PLAYER AMOUNT
  next   skip   end   reset   kick PLAYER   rename NAME
  quit`

type dispatcher interface {
	Dispatch(ctx context.Context, a game.Action) error
	Updates() <-chan game.Session
}

type repl struct {
	n    dispatcher
	self string
	in   io.Reader
	out  io.Writer
	last game.Session
}

func newREPL(n dispatcher, self string, in io.Reader, out io.Writer) *repl {
	return &repl{n: n, self: self, in: in, out: out, last: game.NewSession()}
}

func (r *repl) Run(ctx context.Context) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintln(r.out, `type "help" for commands`)
	updates := r.n.Updates()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s := <-updates:
			r.last = s
			render(r.out, s, r.self)
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			a, err := parseCommand(line, r.self, r.last)
			switch {
			case errors.Is(err, errQuit):
				return nil
			case err != nil:
				fmt.Fprintln(r.out, err)
				continue
			case a == nil:
				continue
			}
			if err := r.n.Dispatch(ctx, a); err != nil {
				fmt.Fprintln(r.out, "not sent:", err)
			}
		}
	}
}

func onOff(arg string) (bool, error) {
	switch strings.ToLower(arg) {
	case "on", "yes", "true":
		return true, nil
	case "off", "no", "false":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", arg)
}

// answerAt resolves a 1-based index into the shuffled answers.
func answerAt(s game.Session, arg string) (string, error) {
	i, err := strconv.Atoi(arg)
	if err != nil || i < 1 || i > len(s.SubmittedAnswers) {
		return "", fmt.Errorf("no answer %q", arg)
	}
	return s.SubmittedAnswers[i-1].ID, nil
}

// parseCommand turns one input line into an action. A nil action with a nil
// error means there was nothing to send.
func parseCommand(line, self string, s game.Session) (game.Action, error) {
	cmd, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	cmd = strings.ToLower(cmd)
	rest = strings.TrimSpace(rest)
	args := strings.Fields(rest)

	switch cmd {
	case "":
		return nil, nil
	case "help", "?":
		return nil, errors.New(help)
	case "quit", "exit":
		return nil, errQuit
	case "bot":
		a := game.AddBot{Personality: game.PersonalityPro}
		if len(args) > 0 {
			a.Name = args[0]
		}
		if len(args) > 1 {
			switch p := game.Personality(strings.ToLower(args[1])); p {
			case game.PersonalityBeginner, game.PersonalityPro, game.PersonalityTroll:
				a.Personality = p
			default:
				return nil, fmt.Errorf("unknown personality %q", args[1])
			}
		}
		return a, nil
	case "troll", "hp", "rules":
		if len(args) != 1 {
			return nil, fmt.Errorf("usage: %s on|off", cmd)
		}
		on, err := onOff(args[0])
		if err != nil {
			return nil, err
		}
		switch cmd {
		case "troll":
			return game.ToggleTrollMode{Enable: on}, nil
		case "hp":
			return game.ToggleHPMode{Enable: on}, nil
		}
		return game.ToggleRules{Show: on}, nil
	case "start":
		mode := game.ModeClassic
		if len(args) > 0 {
			mode = game.Mode(strings.ToLower(args[0]))
		}
		switch mode {
		case game.ModeClassic, game.ModeHost, game.ModeAI:
			return game.StartGame{Mode: mode}, nil
		}
		return nil, fmt.Errorf("unknown mode %q", args[0])
	case "gm":
		parts := strings.Split(rest, "|")
		if len(parts) < 2 {
			return nil, errors.New("usage: gm QUESTION | CORRECT [| FAKE]")
		}
		a := game.SubmitGm{Question: strings.TrimSpace(parts[0]), Correct: strings.TrimSpace(parts[1])}
		if len(parts) > 2 {
			a.Fake = strings.TrimSpace(parts[2])
		}
		return a, nil
	case "timer":
		secs, err := strconv.Atoi(rest)
		if err != nil || secs <= 0 {
			return nil, errors.New("usage: timer SECONDS")
		}
		return game.StartTimer{Duration: secs}, nil
	case "fake":
		if rest == "" {
			return nil, errors.New("usage: fake TEXT")
		}
		return game.SubmitFake{PlayerID: self, Text: rest}, nil
	case "vote":
		id, err := answerAt(s, rest)
		if err != nil {
			return nil, err
		}
		return game.Vote{PlayerID: self, AnswerID: id}, nil
	case "reveal":
		id, err := answerAt(s, rest)
		if err != nil {
			return nil, err
		}
		return game.RevealAnswer{AnswerID: id}, nil
	case "award":
		if rest == "" {
			return nil, errors.New("usage: award PLAYER")
		}
		return game.AwardPoint{PlayerID: rest}, nil
	case "score":
		if len(args) != 2 {
			return nil, errors.New("usage: score PLAYER AMOUNT")
		}
		amt, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, fmt.Errorf("bad amount %q", args[1])
		}
		return game.ManageScore{PlayerID: args[0], Amount: amt}, nil
	case "kick":
		if rest == "" {
			return nil, errors.New("usage: kick PLAYER")
		}
		return game.RemovePlayer{PlayerID: rest}, nil
	case "rename":
		if rest == "" {
			return nil, errors.New("usage: rename NAME")
		}
		return game.UpdatePlayer{PlayerID: self, Name: rest}, nil
	case "next":
		return game.NextRound{}, nil
	case "skip":
		return game.SkipPhase{}, nil
	case "end":
		return game.EndGame{}, nil
	case "reset":
		return game.ResetGame{}, nil
	}
	return nil, fmt.Errorf("unknown command %q, try help", cmd)
}

func render(w io.Writer, s game.Session, self string) {
	fmt.Fprintf(w, "\n== %s  round %d  mode %s\n", s.Phase, s.CurrentRound, s.GameMode)
	for _, p := range s.Players {
		tags := []string{}
		if p.IsHost {
			tags = append(tags, "host")
		}
		if p.ID == s.GameMasterID {
			tags = append(tags, "gm")
		}
		if p.IsBot {
			tags = append(tags, "bot")
		}
		if p.ID == self {
			tags = append(tags, "you")
		}
		fmt.Fprintf(w, "  %-16s %3d  %s  [%s]\n", p.Name, p.Score, p.ID, strings.Join(tags, ","))
	}
	if s.Question != "" {
		fmt.Fprintf(w, "Q: %s\n", s.Question)
	}
	if s.Phase == game.PhaseVoting || s.Phase == game.PhaseResolution {
		for i, a := range s.SubmittedAnswers {
			fmt.Fprintf(w, "  %d) %s\n", i+1, a.Text)
		}
	}
	if s.RoastData != nil {
		fmt.Fprintf(w, "%s: %s\n", s.RoastData.BotName, s.RoastData.Text)
	}
	if s.FinalRoast != "" {
		fmt.Fprintf(w, "%s\n", s.FinalRoast)
	}
}
