package wheelctl

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/okian/blindtest/internal/domain/types"
	"github.com/okian/blindtest/pkg/logger"
)

// Command errors.
var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrUsage          = errors.New("usage error")
)

type command struct {
	summary string
	run     func(r *runner, ctx context.Context, args []string) error
}

var commands = map[string]command{ //nolint:gochecknoglobals // command table
	"status":       {"registration gate and upcoming sessions", (*runner).status},
	"roster":       {"active participants with their odds", (*runner).roster},
	"participants": {"list participants [-active]", (*runner).participants},
	"add":          {"add a participant: add [-avatar A] [-color C] NAME", (*runner).add},
	"activate":     {"make a participant eligible: activate ID", setActive(true)},
	"deactivate":   {"exclude a participant: deactivate ID", setActive(false)},
	"spin":         {"spin the wheel [-enforce] [-confirm]", (*runner).spin},
	"confirm":      {"book a participant for the next business day: confirm ID", (*runner).confirm},
	"lock":         {"lock registration for today", (*runner).lock},
	"sessions":     {"list sessions [-from DATE] [-to DATE]", (*runner).sessions},
	"complete":     {"complete a session: complete ID -url URL [-title T] [-artist A] [-no-play]", (*runner).complete},
	"skip":         {"skip a session: skip ID [-reason R]", (*runner).skip},
	"postpone":     {"postpone a session: postpone ID [-override DATE]", (*runner).postpone},
	"history":      {"completed blindtests [-limit N]", (*runner).history},
	"stats":        {"service statistics", (*runner).stats},
}

type runner struct {
	cfg    *Config
	client *Client
	out    io.Writer
}

// Run executes the command named by args[0] against the service.
func Run(ctx context.Context, cfg *Config, args []string) error {
	if len(args) == 0 {
		ShowHelp(cfg.Out)
		return fmt.Errorf("%w: no command given", ErrUsage)
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCommand, args[0])
	}

	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	r := &runner{cfg: cfg, client: NewClient(cfg.BaseURL, cfg.Timeout), out: out}

	logger.Get().Debug(ctx, "running command",
		logger.String("command", args[0]),
		logger.String("baseURL", cfg.BaseURL))
	return cmd.run(r, ctx, args[1:])
}

func (r *runner) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// parse accepts flags before and after one positional argument.
func parse(fs *flag.FlagSet, args []string, wantArg bool) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrUsage, fs.Name(), err)
	}
	var arg string
	if rest := fs.Args(); len(rest) > 0 {
		arg = rest[0]
		if err := fs.Parse(rest[1:]); err != nil {
			return "", fmt.Errorf("%w: %s: %w", ErrUsage, fs.Name(), err)
		}
	}
	switch {
	case fs.NArg() > 0:
		return "", fmt.Errorf("%w: %s: unexpected arguments %v", ErrUsage, fs.Name(), fs.Args())
	case wantArg && arg == "":
		return "", fmt.Errorf("%w: %s: missing argument", ErrUsage, fs.Name())
	case !wantArg && arg != "":
		return "", fmt.Errorf("%w: %s: unexpected argument %q", ErrUsage, fs.Name(), arg)
	}
	return arg, nil
}

func (r *runner) status(ctx context.Context, args []string) error {
	if _, err := parse(r.flags("status"), args, false); err != nil {
		return err
	}
	reg, err := r.client.Registration(ctx)
	if err != nil {
		return err
	}
	up, err := r.client.Upcoming(ctx)
	if err != nil {
		return err
	}
	if r.cfg.JSON {
		return r.printJSON(map[string]any{"registration": reg, "upcoming": up})
	}

	fmt.Fprintf(r.out, "today:          %s\n", reg.Today)
	fmt.Fprintf(r.out, "registration:   %s\n", describeRegistration(reg))
	fmt.Fprintf(r.out, "today's DJ:     %s\n", describeSession(up.Today))
	fmt.Fprintf(r.out, "%-16s%s\n", reg.NextBusinessDay+":", describeSession(up.NextBusinessDay))
	return nil
}

func (r *runner) roster(ctx context.Context, args []string) error {
	if _, err := parse(r.flags("roster"), args, false); err != nil {
		return err
	}
	roster, err := r.client.Roster(ctx)
	if err != nil {
		return err
	}
	if r.cfg.JSON {
		return r.printJSON(roster)
	}
	if len(roster) == 0 {
		fmt.Fprintln(r.out, "no active participants")
		return nil
	}
	tw := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPROBABILITY\tDAYS SINCE\tPLAYS\tID")
	for _, sp := range roster {
		fmt.Fprintf(tw, "%s\t%.1f%%\t%d\t%d\t%s\n", sp.Name, sp.Probability, sp.DaysSinceLastPlay, sp.TotalPlays, sp.ID)
	}
	return tw.Flush()
}

func (r *runner) participants(ctx context.Context, args []string) error {
	fs := r.flags("participants")
	active := fs.Bool("active", false, "only active participants")
	if _, err := parse(fs, args, false); err != nil {
		return err
	}
	list, err := r.client.Participants(ctx, *active)
	if err != nil {
		return err
	}
	if r.cfg.JSON {
		return r.printJSON(list)
	}
	tw := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tACTIVE\tPLAYS\tLAST PLAYED\tID")
	for _, p := range list {
		last := "never"
		if p.LastPlayedAt != nil {
			last = p.LastPlayedAt.Format("2006-01-02")
		}
		fmt.Fprintf(tw, "%s\t%t\t%d\t%s\t%s\n", p.Name, p.IsActive, p.TotalPlays, last, p.ID)
	}
	return tw.Flush()
}

func (r *runner) add(ctx context.Context, args []string) error {
	fs := r.flags("add")
	avatar := fs.String("avatar", "", "avatar text")
	color := fs.String("color", "", "display color")
	name, err := parse(fs, args, true)
	if err != nil {
		return err
	}
	p, err := r.client.AddParticipant(ctx, types.CreateParticipantRequest{Name: name, Avatar: *avatar, Color: *color})
	if err != nil {
		return err
	}
	if r.cfg.JSON {
		return r.printJSON(p)
	}
	fmt.Fprintf(r.out, "added %s (%s)\n", p.Name, p.ID)
	return nil
}

func setActive(active bool) func(*runner, context.Context, []string) error {
	return func(r *runner, ctx context.Context, args []string) error {
		id, err := parse(r.flags("activate"), args, true)
		if err != nil {
			return err
		}
		p, err := r.client.UpdateParticipant(ctx, id, types.UpdateParticipantRequest{IsActive: &active})
		if err != nil {
			return err
		}
		if r.cfg.JSON {
			return r.printJSON(p)
		}
		state := "inactive"
		if p.IsActive {
			state = "active"
		}
		fmt.Fprintf(r.out, "%s is now %s\n", p.Name, state)
		return nil
	}
}

func (r *runner) spin(ctx context.Context, args []string) error {
	fs := r.flags("spin")
	enforce := fs.Bool("enforce", false, "refuse while registration is closed")
	confirm := fs.Bool("confirm", false, "book the winner for the next business day")
	if _, err := parse(fs, args, false); err != nil {
		return err
	}
	res, err := r.client.Spin(ctx, *enforce || *confirm)
	if err != nil {
		return err
	}

	var booked *types.Session
	if *confirm && res.Winner != nil {
		sess, err := r.client.Confirm(ctx, res.Winner.ID)
		if err != nil {
			return err
		}
		booked = &sess
	}

	if r.cfg.JSON {
		return r.printJSON(map[string]any{"spin": res, "session": booked})
	}
	if res.Winner == nil {
		fmt.Fprintln(r.out, "no active participants")
		return nil
	}
	fmt.Fprintf(r.out, "winner: %s (%.1f%%)\n", res.Winner.Name, res.Winner.Probability)
	if booked != nil {
		fmt.Fprintf(r.out, "booked for %s (session %s)\n", booked.Date, booked.ID)
	} else if !res.Registration.CanRegister {
		fmt.Fprintf(r.out, "registration: %s\n", describeRegistration(res.Registration))
	}
	return nil
}

func (r *runner) confirm(ctx context.Context, args []string) error {
	id, err := parse(r.flags("confirm"), args, true)
	if err != nil {
		return err
	}
	sess, err := r.client.Confirm(ctx, id)
	if err != nil {
		return err
	}
	if r.cfg.JSON {
		return r.printJSON(sess)
	}
	fmt.Fprintf(r.out, "%s booked for %s (session %s)\n", sess.DJName, sess.Date, sess.ID)
	return nil
}

func (r *runner) lock(ctx context.Context, args []string) error {
	if _, err := parse(r.flags("lock"), args, false); err != nil {
		return err
	}
	l, err := r.client.LockRegistration(ctx)
	if err != nil {
		return err
	}
	if r.cfg.JSON {
		return r.printJSON(l)
	}
	fmt.Fprintf(r.out, "registration locked for %s\n", l.LastRegistrationDate)
	return nil
}

func (r *runner) sessions(ctx context.Context, args []string) error {
	fs := r.flags("sessions")
	from := fs.String("from", "", "first date, YYYY-MM-DD")
	to := fs.String("to", "", "last date, YYYY-MM-DD")
	if _, err := parse(fs, args, false); err != nil {
		return err
	}
	list, err := r.client.Sessions(ctx, *from, *to)
	if err != nil {
		return err
	}
	if r.cfg.JSON {
		return r.printJSON(list)
	}
	tw := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tDJ\tSTATUS\tDETAIL\tID")
	for _, s := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.Date, s.DJName, s.Status, sessionDetail(s), s.ID)
	}
	return tw.Flush()
}

func (r *runner) complete(ctx context.Context, args []string) error {
	fs := r.flags("complete")
	link := fs.String("url", "", "video link")
	title := fs.String("title", "", "track title")
	artist := fs.String("artist", "", "track artist")
	noPlay := fs.Bool("no-play", false, "do not count a play for the DJ")
	id, err := parse(fs, args, true)
	if err != nil {
		return err
	}
	if *link == "" {
		return fmt.Errorf("%w: complete: -url is required", ErrUsage)
	}
	out, err := r.client.Complete(ctx, id, types.CompleteSessionRequest{
		YoutubeURL:     *link,
		Title:          *title,
		Artist:         *artist,
		SkipPlayRecord: *noPlay,
	})
	if err != nil {
		return err
	}
	if r.cfg.JSON {
		return r.printJSON(out)
	}
	fmt.Fprintf(r.out, "%s completed: %q by %s\n", out.Session.Date, out.History.Title, out.History.Artist)
	return nil
}

func (r *runner) skip(ctx context.Context, args []string) error {
	fs := r.flags("skip")
	reason := fs.String("reason", "", "why the session is skipped")
	id, err := parse(fs, args, true)
	if err != nil {
		return err
	}
	sess, err := r.client.Skip(ctx, id, *reason)
	if err != nil {
		return err
	}
	if r.cfg.JSON {
		return r.printJSON(sess)
	}
	fmt.Fprintf(r.out, "%s skipped: %s\n", sess.Date, sess.SkipReason)
	return nil
}

func (r *runner) postpone(ctx context.Context, args []string) error {
	fs := r.flags("postpone")
	override := fs.String("override", "", "base date instead of the session's, YYYY-MM-DD")
	id, err := parse(fs, args, true)
	if err != nil {
		return err
	}
	out, err := r.client.Postpone(ctx, id, *override)
	if err != nil {
		return err
	}
	if r.cfg.JSON {
		return r.printJSON(out)
	}
	fmt.Fprintf(r.out, "%s postponed: %s now hosts on %s\n", out.Postponed.Date, out.Next.DJName, out.Next.Date)
	return nil
}

func (r *runner) history(ctx context.Context, args []string) error {
	fs := r.flags("history")
	limit := fs.Int("limit", 10, "number of entries, 0 for all")
	if _, err := parse(fs, args, false); err != nil {
		return err
	}
	list, err := r.client.History(ctx, *limit)
	if err != nil {
		return err
	}
	if r.cfg.JSON {
		return r.printJSON(list)
	}
	tw := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tDJ\tTITLE\tARTIST\tLINK")
	for _, h := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", h.PlayedAt, h.DJName, h.Title, h.Artist, h.YoutubeURL)
	}
	return tw.Flush()
}

func (r *runner) stats(ctx context.Context, args []string) error {
	if _, err := parse(r.flags("stats"), args, false); err != nil {
		return err
	}
	s, err := r.client.Stats(ctx)
	if err != nil {
		return err
	}
	return r.printJSON(s)
}

func (r *runner) printJSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

func describeRegistration(reg types.Registration) string {
	if reg.CanRegister {
		return fmt.Sprintf("open, %d minutes left", reg.Window.MinutesLeft)
	}
	return "closed (" + strings.ReplaceAll(reg.ReasonCode, "_", " ") + ")"
}

func describeSession(s *types.Session) string {
	if s == nil {
		return "nobody yet"
	}
	return fmt.Sprintf("%s [%s] %s", s.DJName, s.Status, sessionDetail(*s))
}

func sessionDetail(s types.Session) string {
	switch {
	case s.Title != "":
		return fmt.Sprintf("%q by %s", s.Title, s.Artist)
	case s.SkipReason != "":
		return s.SkipReason
	}
	return ""
}
