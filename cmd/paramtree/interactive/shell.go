// Package interactive provides the interactive command-line interface
// for paramtree.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/chzyer/readline"

	"github.com/paramtree/paramtree-go/pkg/inspect"
	"github.com/paramtree/paramtree-go/pkg/interaction"
	"github.com/paramtree/paramtree-go/pkg/model"
	"github.com/paramtree/paramtree-go/pkg/notify"
	"github.com/paramtree/paramtree-go/pkg/wire"
)

// Options provides the shell with hooks into the surrounding process.
type Options struct {
	// Save persists the tree. Nil disables the save command.
	Save func() error

	// Pending drains the changes tracked since the last call. Nil
	// disables the changes command.
	Pending func() []notify.Report
}

// Shell handles interactive mode for paramtree. Reads and writes go
// through the management client; inspection of metadata uses the tree.
type Shell struct {
	tree      *model.Tree
	client    *interaction.Client
	remote    *inspect.RemoteInspector
	inspector *inspect.Inspector
	formatter *inspect.Formatter
	opts      Options

	rl  *readline.Instance
	out io.Writer

	root  string
	cwd   string
	key   string
	watch bool
}

var commands = []string{
	"help", "pwd", "cd", "ls", "get", "set", "info", "tree", "attr", "notify",
	"add", "del", "key", "changes", "watch", "meta", "save", "quit",
}

// New creates a new interactive shell.
func New(tree *model.Tree, client *interaction.Client, opts Options) (*Shell, error) {
	s := newShell(tree, client, opts, nil)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          s.prompt(),
		AutoComplete:    completer{s: s},
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	s.rl = rl
	s.out = rl.Stdout()
	return s, nil
}

func newShell(tree *model.Tree, client *interaction.Client, opts Options, out io.Writer) *Shell {
	root := tree.Def().Name
	s := &Shell{
		tree:      tree,
		client:    client,
		remote:    inspect.NewRemoteInspector(client, tree.Def()),
		inspector: inspect.NewInspector(tree),
		formatter: inspect.NewFormatter(),
		opts:      opts,
		out:       out,
		root:      root,
		cwd:       root + ".",
	}
	client.SetNotificationHandler(s.handleNotification)
	return s
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (s *Shell) Stdout() io.Writer {
	return s.rl.Stdout()
}

// Stderr returns a writer that properly coordinates with the readline input.
func (s *Shell) Stderr() io.Writer {
	return s.rl.Stderr()
}

func (s *Shell) prompt() string {
	return s.cwd + "> "
}

// Run starts the interactive command loop.
func (s *Shell) Run(ctx context.Context, cancel context.CancelFunc) {
	defer s.rl.Close()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}

		if s.Execute(ctx, line) {
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}
		s.rl.SetPrompt(s.prompt())
	}
}

// Execute runs one command line. It returns true if the shell should exit.
func (s *Shell) Execute(ctx context.Context, line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return false
	}

	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		s.printHelp()

	case "pwd":
		fmt.Fprintln(s.out, s.cwd)

	case "cd":
		s.cmdCd(ctx, args)

	case "ls", "l":
		s.cmdLs(ctx, args)

	case "get", "g":
		s.cmdGet(ctx, args)

	case "set", "s":
		s.cmdSet(ctx, args)

	case "info", "i":
		s.cmdInfo(args)

	case "tree", "t":
		s.cmdTree(args)

	case "attr":
		s.cmdAttr(ctx, args)

	case "notify":
		s.cmdNotify(ctx, args)

	case "add":
		s.cmdAdd(ctx, args)

	case "del", "delete":
		s.cmdDel(ctx, args)

	case "key":
		s.cmdKey(args)

	case "changes":
		s.cmdChanges()

	case "watch":
		s.watch = toggle(args, s.watch)
		fmt.Fprintf(s.out, "Notifications: %s\n", onOff(s.watch))

	case "meta":
		s.formatter.ShowMetadata = toggle(args, s.formatter.ShowMetadata)
		fmt.Fprintf(s.out, "Metadata: %s\n", onOff(s.formatter.ShowMetadata))

	case "save":
		s.cmdSave()

	case "quit", "exit", "q":
		return true

	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `
Parameter Tree Commands:
  Navigation:
    pwd                 - Show the current object
    cd <path>           - Change the current object (.. for parent, / for root)
    ls [path]           - List the children of an object

  Values:
    get <path>          - Read a parameter, or every parameter beneath an object
    set <path> <value>  - Write a parameter
    key [value]         - Show or set the ParameterKey sent with writes

  Objects:
    add <table>         - Add a row to a table
    del <row>           - Delete a row

  Notification:
    attr <path>         - Show notification attributes
    notify <path> <lvl> - Set notification: off, passive, active
    changes             - Show changes since the last 'changes'
    watch [on|off]      - Print active notifications as they arrive

  Inspection:
    info <path>         - Show an object or parameter with its metadata
    tree [path]         - Show a subtree
    meta [on|off]       - Show type, access and notification in listings

  General:
    save                - Save state to the configured store
    help                - Show this help
    quit                - Exit

  Path Format:
    Device.WiFi.Radio.1.Channel - absolute
    Radio.1.Channel             - relative to the current object
    ../SSID.1.                  - parent, then relative
    Names are case-insensitive; Tab completes.`)
}

// resolve turns a shell argument into a tree path.
func (s *Shell) resolve(arg string) (string, error) {
	p, err := inspect.Resolve(s.root, s.cwd, arg)
	if err != nil {
		return "", err
	}
	if c, ok := inspect.Canonical(s.tree.Def(), p); ok {
		return c, nil
	}
	return p, nil
}

func (s *Shell) pathArg(args []string, usage string) (string, bool) {
	if len(args) < 1 {
		fmt.Fprintf(s.out, "Usage: %s\n", usage)
		return "", false
	}
	p, err := s.resolve(args[0])
	if err != nil {
		fmt.Fprintf(s.out, "Invalid path: %v\n", err)
		return "", false
	}
	return p, true
}

func (s *Shell) printError(err error) {
	var se *interaction.StatusError
	if errors.As(err, &se) {
		fmt.Fprintf(s.out, "Fault %d: %s\n", uint16(se.Status), se.Status)
		for _, f := range se.Faults {
			if f.Path != "" {
				fmt.Fprintf(s.out, "  %s: %d %s\n", f.Path, uint16(f.Code), f.Message)
			} else {
				fmt.Fprintf(s.out, "  %d %s\n", uint16(f.Code), f.Message)
			}
		}
		return
	}
	fmt.Fprintf(s.out, "Error: %v\n", err)
}

func (s *Shell) cmdCd(ctx context.Context, args []string) {
	if len(args) == 0 {
		s.cwd = s.root + "."
		return
	}
	p, ok := s.pathArg(args, "cd <path>")
	if !ok {
		return
	}
	p = model.ObjectPath(p)
	if _, err := s.remote.Names(ctx, p); err != nil {
		s.printError(err)
		return
	}
	s.cwd = p
}

func (s *Shell) cmdLs(ctx context.Context, args []string) {
	p := s.cwd
	if len(args) > 0 {
		var ok bool
		if p, ok = s.pathArg(args, "ls [path]"); !ok {
			return
		}
	}
	names, err := s.remote.Names(ctx, p)
	if err != nil {
		s.printError(err)
		return
	}
	if len(names) == 0 {
		fmt.Fprintln(s.out, "  (empty)")
		return
	}
	for _, n := range names {
		name := inspect.Base(n.Path)
		if inspect.IsPartial(n.Path) {
			name += "."
		}
		if n.Writable {
			name += " (w)"
		}
		fmt.Fprintln(s.out, "  "+name)
	}
}

func (s *Shell) cmdGet(ctx context.Context, args []string) {
	p, ok := s.pathArg(args, "get <path>")
	if !ok {
		return
	}
	if !inspect.IsPartial(p) {
		if _, err := s.tree.LookupTable(p); err == nil {
			p += "."
		} else if _, err := s.tree.Lookup(p); err == nil {
			p += "."
		}
	}

	var values []model.ParameterValue
	if inspect.IsPartial(p) {
		all, err := s.remote.ReadAll(ctx, p)
		if err != nil {
			s.printError(err)
			return
		}
		values = all
	} else {
		pv, err := s.remote.ReadParameter(ctx, p)
		if err != nil {
			s.printError(err)
			return
		}
		values = []model.ParameterValue{pv}
	}

	for _, pv := range values {
		fmt.Fprintf(s.out, "%s = %s\n", s.displayName(pv.Path), s.formatValue(pv))
	}
}

func (s *Shell) cmdSet(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(s.out, "Usage: set <path> <value>")
		fmt.Fprintln(s.out, `  Example: set Device.WiFi.SSID.1.SSID "Home Network"`)
		return
	}
	p, ok := s.pathArg(args, "set <path> <value>")
	if !ok {
		return
	}
	value := strings.Trim(strings.Join(args[1:], " "), "\"'")
	if err := s.remote.WriteParameter(ctx, p, value); err != nil {
		s.printError(err)
		return
	}
	fmt.Fprintln(s.out, "OK")
}

func (s *Shell) cmdInfo(args []string) {
	p := s.cwd
	if len(args) > 0 {
		var ok bool
		if p, ok = s.pathArg(args, "info <path>"); !ok {
			return
		}
	}

	if !inspect.IsPartial(p) {
		if info, err := s.inspector.ReadParameter(p); err == nil {
			fmt.Fprintf(s.out, "%s\n", info.Path)
			fmt.Fprintf(s.out, "  Value:        %s\n", s.formatter.FormatValue(info.Value, info.Unit))
			fmt.Fprintf(s.out, "  Type:         %s\n", info.Value.Type)
			fmt.Fprintf(s.out, "  Access:       %s\n", inspect.FormatAccess(info.Access))
			fmt.Fprintf(s.out, "  Notification: %s\n", inspect.FormatNotification(info.Notification, info.ActiveNotify))
			if info.Unit != "" {
				fmt.Fprintf(s.out, "  Unit:         %s\n", info.Unit)
			}
			if info.Description != "" {
				fmt.Fprintf(s.out, "  Description:  %s\n", info.Description)
			}
			return
		}
	}

	info, err := s.inspector.InspectObject(p)
	if err != nil {
		s.printError(err)
		return
	}
	fmt.Fprint(s.out, s.inspector.FormatObject(info, s.formatter))
}

func (s *Shell) cmdTree(args []string) {
	p := s.cwd
	if len(args) > 0 {
		var ok bool
		if p, ok = s.pathArg(args, "tree [path]"); !ok {
			return
		}
	}
	out, err := s.inspector.FormatTree(p, s.formatter)
	if err != nil {
		s.printError(err)
		return
	}
	fmt.Fprint(s.out, out)
}

func (s *Shell) cmdAttr(ctx context.Context, args []string) {
	p, ok := s.pathArg(args, "attr <path>")
	if !ok {
		return
	}
	attrs, err := s.client.GetParameterAttributes(ctx, p)
	if err != nil {
		s.printError(err)
		return
	}
	for _, a := range attrs {
		fmt.Fprintf(s.out, "%s: %s\n", s.displayName(a.Path), model.Notification(a.Notification))
	}
}

func (s *Shell) cmdNotify(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(s.out, "Usage: notify <path> <off|passive|active>")
		return
	}
	p, ok := s.pathArg(args, "notify <path> <level>")
	if !ok {
		return
	}
	if err := s.remote.SetNotification(ctx, p, args[1]); err != nil {
		s.printError(err)
		return
	}
	fmt.Fprintln(s.out, "OK")
}

func (s *Shell) cmdAdd(ctx context.Context, args []string) {
	p, ok := s.pathArg(args, "add <table>")
	if !ok {
		return
	}
	row, err := s.remote.AddObject(ctx, p)
	if err != nil {
		s.printError(err)
		return
	}
	fmt.Fprintf(s.out, "Added %s\n", row)
}

func (s *Shell) cmdDel(ctx context.Context, args []string) {
	p, ok := s.pathArg(args, "del <row>")
	if !ok {
		return
	}
	if err := s.remote.DeleteObject(ctx, p); err != nil {
		s.printError(err)
		return
	}
	if strings.HasPrefix(s.cwd, model.ObjectPath(p)) {
		s.cwd = inspect.Parent(p)
	}
	fmt.Fprintln(s.out, "OK")
}

func (s *Shell) cmdKey(args []string) {
	if len(args) > 0 {
		s.key = strings.Join(args, " ")
		s.remote.SetParameterKey(s.key)
	}
	fmt.Fprintf(s.out, "ParameterKey: %q\n", s.key)
}

func (s *Shell) cmdChanges() {
	if s.opts.Pending == nil {
		fmt.Fprintln(s.out, "Change tracking is not enabled")
		return
	}
	reports := s.opts.Pending()
	if len(reports) == 0 {
		fmt.Fprintln(s.out, "No changes")
		return
	}
	for _, r := range reports {
		fmt.Fprintf(s.out, "  [%s] %s = %s\n", r.Notification, r.Path, r.Type.Format(r.Value))
	}
}

func (s *Shell) cmdSave() {
	if s.opts.Save == nil {
		fmt.Fprintln(s.out, "No store configured")
		return
	}
	if err := s.opts.Save(); err != nil {
		fmt.Fprintf(s.out, "Save failed: %v\n", err)
		return
	}
	fmt.Fprintln(s.out, "Saved")
}

func (s *Shell) handleNotification(notif *wire.Notification) {
	if !s.watch {
		return
	}
	for _, v := range notif.Changes {
		pv, err := v.ToModel()
		if err != nil {
			fmt.Fprintf(s.out, "[NOTIFY #%d] %s: %v\n", notif.Sequence, v.Path, err)
			continue
		}
		fmt.Fprintf(s.out, "[NOTIFY #%d] %s = %s\n", notif.Sequence, pv.Path, s.formatValue(pv))
	}
}

// displayName shortens paths below the current object.
func (s *Shell) displayName(path string) string {
	if s.formatter.ShowPaths {
		return path
	}
	if rel, ok := strings.CutPrefix(path, s.cwd); ok && rel != "" {
		return rel
	}
	return path
}

func (s *Shell) formatValue(pv model.ParameterValue) string {
	var unit string
	if pd, ok := inspect.ParameterDef(s.tree.Def(), pv.Path); ok {
		unit = pd.Unit
	}
	return s.formatter.FormatValue(pv, unit)
}

func toggle(args []string, cur bool) bool {
	if len(args) == 0 {
		return !cur
	}
	switch strings.ToLower(args[0]) {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}
	return cur
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// completer completes command names and tree paths.
type completer struct {
	s *Shell
}

// Do implements readline.AutoCompleter.
func (c completer) Do(line []rune, pos int) ([][]rune, int) {
	text := string(line[:pos])
	start := strings.LastIndexByte(text, ' ') + 1
	word := text[start:]

	var candidates []string
	if start == 0 {
		for _, cmd := range commands {
			if strings.HasPrefix(cmd, strings.ToLower(word)) {
				candidates = append(candidates, cmd[len(word):]+" ")
			}
		}
	} else {
		full := word
		if !strings.HasPrefix(strings.ToLower(word), strings.ToLower(c.s.root)) {
			full = c.s.cwd + word
		}
		for _, p := range inspect.Complete(c.s.tree, full) {
			if len(p) >= len(full) {
				candidates = append(candidates, p[len(full):])
			}
		}
	}

	sort.Strings(candidates)
	out := make([][]rune, len(candidates))
	for i, cand := range candidates {
		out[i] = []rune(cand)
	}
	return out, len([]rune(word))
}
