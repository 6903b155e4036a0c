// Package daemon serves the control socket and owns the live session.
package daemon

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/leonardotrapani/hyprscribe/internal/archive"
	"github.com/leonardotrapani/hyprscribe/internal/bus"
	"github.com/leonardotrapani/hyprscribe/internal/config"
	"github.com/leonardotrapani/hyprscribe/internal/export"
	"github.com/leonardotrapani/hyprscribe/internal/llm"
	"github.com/leonardotrapani/hyprscribe/internal/logging"
	"github.com/leonardotrapani/hyprscribe/internal/metrics"
	"github.com/leonardotrapani/hyprscribe/internal/notify"
	"github.com/leonardotrapani/hyprscribe/internal/session"
	"github.com/leonardotrapani/hyprscribe/internal/speaker"
	"github.com/leonardotrapani/hyprscribe/internal/textcodec"
)

// Version is reported by the version command.
var Version = "dev"

const commandTimeout = 30 * time.Second

// Summarizer is the part of llm.Summarizer used for export summaries.
type Summarizer interface {
	Summarize(ctx context.Context, exp export.SessionExport) (string, error)
}

type Option func(*Daemon)

// WithNotifier fixes the notifier instead of deriving it from [notifications].
func WithNotifier(n notify.Notifier) Option {
	return func(d *Daemon) { d.fixedNotifier = n }
}

func WithSessionOptions(opts ...session.Option) Option {
	return func(d *Daemon) { d.sessionOpts = append(d.sessionOpts, opts...) }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Daemon) { d.metrics = m }
}

func WithSummarizer(f func(llm.Config) (Summarizer, error)) Option {
	return func(d *Daemon) { d.newSummarizer = f }
}

type Daemon struct {
	mu            sync.RWMutex
	notifier      notify.Notifier
	fixedNotifier notify.Notifier

	manager       *config.Manager
	session       *session.Session
	sessionOpts   []session.Option
	metrics       *metrics.Metrics
	newSummarizer func(llm.Config) (Summarizer, error)
	logger        zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

func New(manager *config.Manager, opts ...Option) *Daemon {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Daemon{
		manager: manager,
		metrics: metrics.DefaultMetrics,
		newSummarizer: func(cfg llm.Config) (Summarizer, error) {
			return llm.NewSummarizer(cfg)
		},
		logger: logging.WithComponent("daemon"),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(d)
	}

	cfg := manager.GetConfig()
	d.notifier = d.notifierFor(cfg)
	d.session = session.New(cfg.ToSessionConfig(), append([]session.Option{session.WithMetrics(d.metrics)}, d.sessionOpts...)...)
	d.session.Subscribe(d.onUpdate)
	return d
}

func (d *Daemon) notifierFor(cfg *config.Config) notify.Notifier {
	if d.fixedNotifier != nil {
		return d.fixedNotifier
	}
	if !cfg.Notifications.Enabled {
		return notify.Nop{}
	}
	return notify.New(cfg.Notifications.Type)
}

func (d *Daemon) getNotifier() notify.Notifier {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.notifier
}

// onUpdate runs on the session goroutine, so notifications are sent asynchronously.
func (d *Daemon) onUpdate(u session.Update) {
	n := d.getNotifier()
	switch u.Kind {
	case session.UpdateRecording:
		go n.RecordingChanged(u.Recording)
	case session.UpdateSpeaker:
		if u.Speaker.Kind == speaker.Added || u.Speaker.Kind == speaker.Activated {
			go n.SpeakerChanged(u.Speaker.Name, u.Speaker.Color)
		}
	case session.UpdateError:
		d.logger.Error().Err(u.Err).Msg("session error")
		go n.Error(u.Err.Error())
	}
}

func (d *Daemon) applyConfig(cfg *config.Config) {
	d.mu.Lock()
	d.notifier = d.notifierFor(cfg)
	d.mu.Unlock()

	if err := d.session.Configure(d.ctx, cfg.ToSessionConfig()); err != nil {
		d.logger.Error().Err(err).Msg("failed to apply configuration")
		return
	}
	d.logger.Info().Msg("configuration applied to next recording")
}

func (d *Daemon) Run() error {
	if err := bus.CheckExistingDaemon(); err != nil {
		return err
	}

	ln, err := bus.Listen()
	if err != nil {
		return err
	}
	defer ln.Close()

	if err := bus.CreatePidFile(); err != nil {
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	defer bus.RemovePidFile()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			d.logger.Info().Str("signal", sig.String()).Msg("shutting down gracefully")
			d.cancel()
		case <-d.ctx.Done():
		}
	}()

	sessionDone := make(chan struct{})
	go func() {
		defer close(sessionDone)
		d.session.Run(d.ctx)
	}()
	defer func() { <-sessionDone }()

	cfg := d.manager.GetConfig()
	d.registerSpeakers(cfg.Session.Speakers)

	d.manager.OnChange(d.applyConfig)
	if err := d.manager.StartWatching(d.ctx); err != nil {
		d.logger.Warn().Err(err).Msg("config watching disabled")
	}
	defer d.manager.Stop()

	if cfg.Metrics.Listen != "" {
		go func() {
			if err := metrics.Serve(d.ctx, cfg.Metrics.Listen); err != nil {
				d.logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	go func() {
		<-d.ctx.Done()
		ln.Close()
	}()

	d.logger.Info().Str("version", Version).Msg("daemon started, listening on socket")

	for {
		c, err := ln.Accept()
		if err != nil {
			if d.ctx.Err() != nil {
				d.logger.Info().Msg("shutdown requested")
				return nil
			}
			d.cancel()
			return fmt.Errorf("accept failed: %w", err)
		}
		go d.handle(c)
	}
}

func (d *Daemon) registerSpeakers(names []string) {
	for _, name := range names {
		if _, err := d.session.AddSpeaker(d.ctx, name); err != nil {
			d.logger.Warn().Err(err).Str("speaker", name).Msg("skipping configured speaker")
		}
	}
}

func (d *Daemon) handle(c net.Conn) {
	defer c.Close()
	_ = c.SetReadDeadline(time.Now().Add(5 * time.Second))

	req, err := bus.ReadRequest(c)
	if err != nil {
		d.logger.Warn().Err(err).Msg("client read error")
		bus.WriteResponse(c, bus.Err(err))
		return
	}

	ctx, cancel := context.WithTimeout(d.ctx, commandTimeout)
	defer cancel()

	resp := d.dispatch(ctx, req)
	if resp.Status == bus.StatusErr {
		d.logger.Warn().Str("cmd", req.Cmd).Str("error", resp.Message).Msg("command failed")
	} else {
		d.logger.Debug().Str("cmd", req.Cmd).Msg("command handled")
	}
	if err := bus.WriteResponse(c, resp); err != nil {
		d.logger.Warn().Err(err).Msg("client write error")
	}
}

type handlerFunc func(ctx context.Context, args []string) (bus.Response, error)

type command struct {
	minArgs int
	maxArgs int
	usage   string
	run     handlerFunc
}

func (d *Daemon) commands() map[string]command {
	return map[string]command{
		"start":          {0, 0, "start", d.cmdStart},
		"stop":           {0, 0, "stop", d.cmdStop},
		"toggle":         {0, 0, "toggle", d.cmdToggle},
		"status":         {0, 0, "status", d.cmdStatus},
		"speaker.add":    {1, 1, "speaker.add <name>", d.cmdSpeakerAdd},
		"speaker.use":    {1, 1, "speaker.use <name>", d.cmdSpeakerUse},
		"speaker.rename": {2, 2, "speaker.rename <old> <new>", d.cmdSpeakerRename},
		"speaker.color":  {2, 2, "speaker.color <name> <#rrggbb>", d.cmdSpeakerColor},
		"speaker.list":   {0, 0, "speaker.list", d.cmdSpeakerList},
		"note":           {0, 2, "note [text] [line]", d.cmdNote},
		"transcript":     {0, 0, "transcript", d.cmdTranscript},
		"notes":          {0, 0, "notes", d.cmdNotes},
		"partial":        {0, 0, "partial", d.cmdPartial},
		"export":         {0, 3, "export [path] [summary] [archive]", d.cmdExport},
		"version":        {0, 0, "version", d.cmdVersion},
		"quit":           {0, 0, "quit", d.cmdQuit},
	}
}

func (d *Daemon) dispatch(ctx context.Context, req bus.Request) bus.Response {
	cmd, ok := d.commands()[req.Cmd]
	if !ok {
		return bus.Err(fmt.Errorf("unknown command %q", req.Cmd))
	}
	if len(req.Args) < cmd.minArgs || len(req.Args) > cmd.maxArgs {
		return bus.Err(fmt.Errorf("usage: %s", cmd.usage))
	}
	resp, err := cmd.run(ctx, req.Args)
	if err != nil {
		return bus.Err(err)
	}
	return resp
}

func recordingStatus(on bool) bus.Response {
	return bus.Response{Status: bus.StatusStatus, Message: "recording=" + strconv.FormatBool(on)}
}

func (d *Daemon) cmdStart(ctx context.Context, _ []string) (bus.Response, error) {
	if err := d.session.Start(ctx); err != nil {
		return bus.Response{}, err
	}
	return recordingStatus(true), nil
}

func (d *Daemon) cmdStop(ctx context.Context, _ []string) (bus.Response, error) {
	if err := d.session.Stop(ctx); err != nil {
		return bus.Response{}, err
	}
	return recordingStatus(false), nil
}

func (d *Daemon) cmdToggle(ctx context.Context, _ []string) (bus.Response, error) {
	on, err := d.session.Toggle(ctx)
	if err != nil {
		return bus.Response{}, err
	}
	return recordingStatus(on), nil
}

func (d *Daemon) cmdStatus(ctx context.Context, _ []string) (bus.Response, error) {
	st, err := d.session.Status(ctx)
	if err != nil {
		return bus.Response{}, err
	}
	msg := fmt.Sprintf("recording=%t speaker=%q speakers=%d segments=%d notes=%d dropped=%d",
		st.Recording, st.ActiveSpeaker, st.Speakers, st.Segments, st.Notes, st.DroppedFrames)
	if st.Recording {
		msg += " started=" + st.StartedAt.Format(time.RFC3339)
	}
	return bus.Response{Status: bus.StatusStatus, Message: msg}, nil
}

func (d *Daemon) cmdSpeakerAdd(ctx context.Context, args []string) (bus.Response, error) {
	color, err := d.session.AddSpeaker(ctx, args[0])
	if err != nil {
		return bus.Response{}, err
	}
	return bus.OK(color + " " + args[0]), nil
}

func (d *Daemon) cmdSpeakerUse(ctx context.Context, args []string) (bus.Response, error) {
	if err := d.session.UseSpeaker(ctx, args[0]); err != nil {
		return bus.Response{}, err
	}
	return bus.OK(args[0]), nil
}

func (d *Daemon) cmdSpeakerRename(ctx context.Context, args []string) (bus.Response, error) {
	if err := d.session.RenameSpeaker(ctx, args[0], args[1]); err != nil {
		return bus.Response{}, err
	}
	return bus.OK(args[1]), nil
}

func (d *Daemon) cmdSpeakerColor(ctx context.Context, args []string) (bus.Response, error) {
	if err := d.session.RecolorSpeaker(ctx, args[0], args[1]); err != nil {
		return bus.Response{}, err
	}
	return bus.OK(args[1] + " " + args[0]), nil
}

// cmdSpeakerList answers one "<marker> <color> <name>" line per speaker; the active
// speaker's marker is "*".
func (d *Daemon) cmdSpeakerList(ctx context.Context, _ []string) (bus.Response, error) {
	all, active, err := d.session.Speakers(ctx)
	if err != nil {
		return bus.Response{}, err
	}
	var b strings.Builder
	for _, s := range all {
		marker := "-"
		if s.Name == active {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s %s %s\n", marker, s.Color, s.Name)
	}
	return bus.Response{Status: bus.StatusOK, Message: strconv.Itoa(len(all)), Body: b.String()}, nil
}

func (d *Daemon) cmdNote(ctx context.Context, args []string) (bus.Response, error) {
	text, line := "", -1
	if len(args) > 0 {
		text = args[0]
	}
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return bus.Response{}, fmt.Errorf("invalid line %q", args[1])
		}
		line = n
	}

	note, err := d.session.AddNote(ctx, text, line)
	if err != nil {
		return bus.Response{}, err
	}
	return bus.OK(textcodec.FormatLine(textcodec.Entry{Timestamp: note.Label, Speaker: note.SpeakerName, Text: note.Text})), nil
}

func (d *Daemon) cmdTranscript(ctx context.Context, _ []string) (bus.Response, error) {
	exp, err := d.session.Snapshot(ctx)
	if err != nil {
		return bus.Response{}, err
	}
	return bus.Response{
		Status:  bus.StatusOK,
		Message: strconv.Itoa(len(exp.Transcript)),
		Body:    textcodec.FormatLines(exp.Transcript),
	}, nil
}

func (d *Daemon) cmdNotes(ctx context.Context, _ []string) (bus.Response, error) {
	exp, err := d.session.Snapshot(ctx)
	if err != nil {
		return bus.Response{}, err
	}
	return bus.Response{
		Status:  bus.StatusOK,
		Message: strconv.Itoa(len(exp.Notes)),
		Body:    textcodec.FormatBlocks(exp.Notes),
	}, nil
}

func (d *Daemon) cmdPartial(ctx context.Context, _ []string) (bus.Response, error) {
	p, err := d.session.Partial(ctx)
	if err != nil {
		return bus.Response{}, err
	}
	return bus.OK(p), nil
}

// cmdExport writes the export document. Besides the path, args may contain the words
// "summary" and "archive" to force those steps on even when the config leaves them off.
func (d *Daemon) cmdExport(ctx context.Context, args []string) (bus.Response, error) {
	cfg := d.manager.GetConfig()
	path := ""
	wantSummary, wantArchive := cfg.LLM.Enabled, cfg.Archive.Enabled
	for _, arg := range args {
		switch arg {
		case "summary":
			wantSummary = true
		case "archive":
			wantArchive = true
		default:
			path = arg
		}
	}

	exp, err := d.session.Snapshot(ctx)
	if err != nil {
		return bus.Response{}, err
	}

	now := time.Now()
	if path == "" {
		path = filepath.Join(cfg.ExportDir(), export.DefaultFilename(now))
	} else if !filepath.IsAbs(path) {
		path = filepath.Join(cfg.ExportDir(), path)
	}

	if err := export.Write(path, exp); err != nil {
		d.metrics.Exports.WithLabelValues("error").Inc()
		return bus.Response{}, err
	}
	d.metrics.Exports.WithLabelValues("ok").Inc()
	d.logger.Info().Str("path", path).Int("segments", len(exp.Transcript)).Msg("session exported")

	var body strings.Builder
	var errs []error

	summary := ""
	if wantSummary {
		summaryPath, s, err := d.writeSummary(ctx, cfg, path, exp)
		if err != nil {
			errs = append(errs, fmt.Errorf("summary: %w", err))
		} else if summaryPath != "" {
			summary = s
			fmt.Fprintf(&body, "summary %s\n", summaryPath)
		}
	}

	if wantArchive {
		hash, created, err := d.archive(ctx, cfg, exp, summary)
		if err != nil {
			errs = append(errs, fmt.Errorf("archive: %w", err))
		} else {
			state := "existing"
			if created {
				state = "new"
			}
			fmt.Fprintf(&body, "archive %s %s\n", hash, state)
		}
	}

	for _, err := range errs {
		d.logger.Warn().Err(err).Msg("export step failed")
		fmt.Fprintf(&body, "warning %v\n", err)
	}
	return bus.Response{Status: bus.StatusOK, Message: path, Body: body.String()}, nil
}

// writeSummary stores the summary next to the export with a .md extension. An empty
// session yields no file.
func (d *Daemon) writeSummary(ctx context.Context, cfg *config.Config, exportPath string, exp export.SessionExport) (string, string, error) {
	summarizer, err := d.newSummarizer(cfg.ToLLMConfig())
	if err != nil {
		return "", "", err
	}
	summary, err := summarizer.Summarize(ctx, exp)
	if err != nil {
		return "", "", err
	}
	if summary == "" {
		return "", "", nil
	}

	path := strings.TrimSuffix(exportPath, filepath.Ext(exportPath)) + ".md"
	if err := os.WriteFile(path, []byte(summary+"\n"), 0o644); err != nil {
		return "", "", &export.ExportIOError{Path: path, Err: err}
	}
	return path, summary, nil
}

func (d *Daemon) archive(ctx context.Context, cfg *config.Config, exp export.SessionExport, summary string) (string, bool, error) {
	a, err := archive.Open(ctx, cfg.ArchivePath())
	if err != nil {
		return "", false, err
	}
	defer a.Close()
	return a.Save(ctx, exp, summary)
}

func (d *Daemon) cmdVersion(context.Context, []string) (bus.Response, error) {
	return bus.Response{Status: bus.StatusStatus, Message: fmt.Sprintf("proto=%s version=%s", bus.ProtoVer, Version)}, nil
}

func (d *Daemon) cmdQuit(context.Context, []string) (bus.Response, error) {
	d.cancel()
	return bus.OK("quitting"), nil
}
