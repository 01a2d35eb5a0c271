package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/sottey/fresh/internal/engine"
)

// handleCommand parses and executes one shell line. Command failures
// are reported to the output and keep the session alive; only quit
// returns an error.
func (a *App) handleCommand(input string) error {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help":
		a.printHelp()

	case "quit", "exit":
		fmt.Fprintln(a.out, "Goodbye!")
		return ErrQuit

	case "open":
		a.cmdOpen(args)

	case "new":
		a.cmdNew(args)

	case "insert":
		a.cmdInsert(args)

	case "delete":
		a.cmdDelete(args)

	case "replace":
		a.cmdReplace(args)

	case "text":
		a.cmdText(args)

	case "line":
		a.cmdLine(args)

	case "find":
		a.cmdFind(args)

	case "undo":
		a.cmdUndo()

	case "redo":
		a.cmdRedo()

	case "group":
		a.cmdGroup(args)

	case "endgroup":
		a.cmdEndGroup()

	case "save":
		a.cmdSave(args)

	case "mark":
		a.cmdMark(args)

	case "unmark":
		a.cmdUnmark(args)

	case "positions":
		a.cmdPositions()

	case "stats":
		a.cmdStats()

	case "history":
		a.cmdHistory(args)

	default:
		fmt.Fprintf(a.out, "Unknown command: %s. Type 'help' for available commands.\n", cmd)
	}

	return nil
}

func (a *App) printHelp() {
	help := `
Available Commands:
-------------------

CONTENT:
  open <path>             Load a file into the engine
  new [text]              Replace all content with the given text
  text                    Dump the full content
  text <start> <end>      Show the bytes in [start, end)
  line <n>                Show line n (0-based, without newline)

EDITING:
  insert <offset> <text>  Insert text at a byte offset
  delete <start> <end>    Delete the bytes in [start, end)
  replace <start> <end> <text>
                          Replace a byte range with text
  (\n and \t in text arguments are unescaped)

HISTORY:
  undo                    Revert the most recent undo unit
  redo                    Re-apply the most recently undone unit
  group [label]           Start folding edits into one undo unit
  endgroup                Close the current group
  history save <path>     Write the undo history as JSON Lines
  history load <path>     Replace the undo history from a file
  history verify          Replay the loaded history and compare

POSITIONS:
  mark <offset>           Track a byte position through edits
  unmark <id>             Stop tracking a position
  positions               List tracked positions

SEARCH:
  find <pattern> [from]   Find the next literal match, wrapping

FILES:
  save [path]             Save to the associated or given path

OTHER:
  stats                   Show engine counters
  help                    Show this help message
  quit, exit              Exit the shell
`
	fmt.Fprintln(a.out, help)
}

// unescaper expands the escape sequences accepted in text arguments.
var unescaper = strings.NewReplacer(`\n`, "\n", `\t`, "\t")

func (a *App) cmdOpen(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(a.out, "Usage: open <path>")
		return
	}

	path := args[0]
	if err := a.engine.Load(context.Background(), path); err != nil {
		fmt.Fprintf(a.out, "Open error: %v\n", err)
		return
	}
	fmt.Fprintf(a.out, "Opened %s (%d bytes, %d lines)\n", path, a.engine.Len(), a.engine.LineCount())
}

func (a *App) cmdNew(args []string) {
	text := unescaper.Replace(strings.Join(args, " "))

	v, err := a.engine.SetContent(text)
	if err != nil {
		fmt.Fprintf(a.out, "Error setting content: %v\n", err)
		return
	}
	fmt.Fprintf(a.out, "Content set (%d bytes, version %d)\n", a.engine.Len(), v)
}

func (a *App) cmdInsert(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(a.out, "Usage: insert <offset> <text>")
		return
	}

	offset, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		fmt.Fprintf(a.out, "Invalid offset: %v\n", err)
		return
	}
	text := unescaper.Replace(strings.Join(args[1:], " "))

	res, err := a.engine.Insert(engine.ByteOffset(offset), text)
	if err != nil {
		fmt.Fprintf(a.out, "Insert error: %v\n", err)
		return
	}
	fmt.Fprintf(a.out, "Inserted %d bytes at %d (version %d)\n", res.Edit.Inserted, offset, res.Version)
}

func (a *App) cmdDelete(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(a.out, "Usage: delete <start> <end>")
		return
	}

	start, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		fmt.Fprintf(a.out, "Invalid start: %v\n", err)
		return
	}
	end, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		fmt.Fprintf(a.out, "Invalid end: %v\n", err)
		return
	}

	res, err := a.engine.Delete(engine.ByteOffset(start), engine.ByteOffset(end))
	if err != nil {
		fmt.Fprintf(a.out, "Delete error: %v\n", err)
		return
	}
	fmt.Fprintf(a.out, "Deleted %d bytes (version %d)\n", res.Edit.Removed, res.Version)
}

func (a *App) cmdReplace(args []string) {
	if len(args) < 3 {
		fmt.Fprintln(a.out, "Usage: replace <start> <end> <text>")
		return
	}

	start, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		fmt.Fprintf(a.out, "Invalid start: %v\n", err)
		return
	}
	end, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		fmt.Fprintf(a.out, "Invalid end: %v\n", err)
		return
	}
	text := unescaper.Replace(strings.Join(args[2:], " "))

	res, err := a.engine.Replace(engine.ByteOffset(start), engine.ByteOffset(end), text)
	if err != nil {
		fmt.Fprintf(a.out, "Replace error: %v\n", err)
		return
	}
	fmt.Fprintf(a.out, "Replaced %d bytes with %d (version %d)\n", res.Edit.Removed, res.Edit.Inserted, res.Version)
}

func (a *App) cmdText(args []string) {
	if len(args) >= 2 {
		start, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			fmt.Fprintf(a.out, "Invalid start: %v\n", err)
			return
		}
		end, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			fmt.Fprintf(a.out, "Invalid end: %v\n", err)
			return
		}
		text, err := a.engine.TextRange(engine.ByteOffset(start), engine.ByteOffset(end))
		if err != nil {
			fmt.Fprintf(a.out, "Read error: %v\n", err)
			return
		}
		fmt.Fprintf(a.out, "%q\n", text)
		return
	}

	fmt.Fprintln(a.out, "Content:")
	fmt.Fprintln(a.out, "--------")
	fmt.Fprintln(a.out, a.engine.Text())
	fmt.Fprintln(a.out, "--------")
	fmt.Fprintf(a.out, "Total: %d bytes, %d lines, version %d\n",
		a.engine.Len(), a.engine.LineCount(), a.engine.Version())
}

func (a *App) cmdLine(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(a.out, "Usage: line <n>")
		return
	}

	n, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		fmt.Fprintf(a.out, "Invalid line number: %v\n", err)
		return
	}

	text, err := a.engine.LineText(uint32(n))
	if err != nil {
		fmt.Fprintf(a.out, "Line error: %v\n", err)
		return
	}
	fmt.Fprintf(a.out, "Line %d: %q\n", n, text)
}

func (a *App) cmdFind(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(a.out, "Usage: find <pattern> [from]")
		return
	}

	pattern := unescaper.Replace(args[0])
	from := int64(0)
	if len(args) >= 2 {
		var err error
		from, err = strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			fmt.Fprintf(a.out, "Invalid offset: %v\n", err)
			return
		}
	}

	off, found, err := a.engine.Find(context.Background(), pattern, engine.ByteOffset(from), engine.FindOptions{Wrap: true})
	if err != nil {
		fmt.Fprintf(a.out, "Find error: %v\n", err)
		return
	}
	if !found {
		fmt.Fprintf(a.out, "Pattern %q not found\n", pattern)
		return
	}
	fmt.Fprintf(a.out, "Found %q at offset %d\n", pattern, off)
}

func (a *App) cmdUndo() {
	ok, err := a.engine.Undo()
	if err != nil {
		fmt.Fprintf(a.out, "Undo error: %v\n", err)
		return
	}
	if !ok {
		fmt.Fprintln(a.out, "Nothing to undo")
		return
	}
	fmt.Fprintf(a.out, "Undone (version %d, %d bytes)\n", a.engine.Version(), a.engine.Len())
}

func (a *App) cmdRedo() {
	ok, err := a.engine.Redo()
	if err != nil {
		fmt.Fprintf(a.out, "Redo error: %v\n", err)
		return
	}
	if !ok {
		fmt.Fprintln(a.out, "Nothing to redo")
		return
	}
	fmt.Fprintf(a.out, "Redone (version %d, %d bytes)\n", a.engine.Version(), a.engine.Len())
}

func (a *App) cmdGroup(args []string) {
	label := strings.Join(args, " ")
	a.engine.BeginUndoGroup(label)
	fmt.Fprintf(a.out, "Group started (label=%q)\n", label)
}

func (a *App) cmdEndGroup() {
	a.engine.EndUndoGroup()
	fmt.Fprintf(a.out, "Group closed (%d undo units)\n", a.engine.UndoCount())
}

func (a *App) cmdSave(args []string) {
	var err error
	path := a.engine.Path()
	if len(args) >= 1 {
		path = args[0]
		err = a.engine.SaveAs(context.Background(), path)
	} else {
		err = a.engine.Save(context.Background())
	}

	if errors.Is(err, engine.ErrNoPath) {
		fmt.Fprintln(a.out, "No file associated; use 'save <path>'")
		return
	}
	if err != nil {
		fmt.Fprintf(a.out, "Save error: %v\n", err)
		return
	}
	fmt.Fprintf(a.out, "Saved %s (%d bytes)\n", path, a.engine.Len())
}

func (a *App) cmdMark(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(a.out, "Usage: mark <offset>")
		return
	}

	offset, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		fmt.Fprintf(a.out, "Invalid offset: %v\n", err)
		return
	}
	if offset < 0 || engine.ByteOffset(offset) > a.engine.Len() {
		fmt.Fprintf(a.out, "Offset %d out of range [0, %d]\n", offset, a.engine.Len())
		return
	}

	id := a.engine.RegisterPosition(engine.ByteOffset(offset))
	fmt.Fprintf(a.out, "Marked offset %d as %s\n", offset, id)
}

func (a *App) cmdUnmark(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(a.out, "Usage: unmark <id>")
		return
	}

	id, err := uuid.Parse(args[0])
	if err != nil {
		fmt.Fprintf(a.out, "Invalid position id: %v\n", err)
		return
	}

	if !a.engine.UnregisterPosition(id) {
		fmt.Fprintf(a.out, "No position %s\n", id)
		return
	}
	fmt.Fprintf(a.out, "Unmarked %s\n", id)
}

func (a *App) cmdPositions() {
	states := a.engine.Positions()
	if len(states) == 0 {
		fmt.Fprintln(a.out, "(no tracked positions)")
		return
	}

	fmt.Fprintln(a.out, "Tracked positions:")
	for _, s := range states {
		fmt.Fprintf(a.out, "  %s at %d\n", s.ID, s.Offset)
	}
}

func (a *App) cmdStats() {
	s := a.engine.Stats()

	fmt.Fprintln(a.out, "Engine Status:")
	fmt.Fprintf(a.out, "  Version:   %d\n", s.Version)
	fmt.Fprintf(a.out, "  Bytes:     %d\n", s.Length)
	fmt.Fprintf(a.out, "  Lines:     %d\n", s.Lines)
	fmt.Fprintf(a.out, "  Positions: %d\n", s.Positions)
	fmt.Fprintf(a.out, "  Undo/Redo: %d/%d\n", s.UndoDepth, s.RedoDepth)
	fmt.Fprintf(a.out, "  Cache:     %d hits, %d misses, %d entries\n", s.Cache.Hits, s.Cache.Misses, s.Cache.Entries)
	fmt.Fprintf(a.out, "  Events:    %d published\n", s.Events.EventsPublished)
	fmt.Fprintf(a.out, "  Modified:  %v\n", a.engine.Modified())
	if path := a.engine.Path(); path != "" {
		fmt.Fprintf(a.out, "  Path:      %s\n", path)
	}
}

func (a *App) cmdHistory(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(a.out, "Usage: history save <path> | history load <path> | history verify")
		return
	}

	switch strings.ToLower(args[0]) {
	case "save":
		if len(args) < 2 {
			fmt.Fprintln(a.out, "Usage: history save <path>")
			return
		}
		f, err := os.Create(args[1])
		if err != nil {
			fmt.Fprintf(a.out, "History save error: %v\n", err)
			return
		}
		if err := a.engine.SaveHistory(f); err != nil {
			f.Close()
			fmt.Fprintf(a.out, "History save error: %v\n", err)
			return
		}
		if err := f.Close(); err != nil {
			fmt.Fprintf(a.out, "History save error: %v\n", err)
			return
		}
		fmt.Fprintf(a.out, "History saved to %s (%d entries)\n", args[1], a.engine.UndoCount()+a.engine.RedoCount())

	case "load":
		if len(args) < 2 {
			fmt.Fprintln(a.out, "Usage: history load <path>")
			return
		}
		f, err := os.Open(args[1])
		if err != nil {
			fmt.Fprintf(a.out, "History load error: %v\n", err)
			return
		}
		defer f.Close()
		if err := a.engine.LoadHistory(f); err != nil {
			fmt.Fprintf(a.out, "History load error: %v\n", err)
			return
		}
		fmt.Fprintf(a.out, "History loaded (%d undo units)\n", a.engine.UndoCount())

	case "verify":
		if err := a.engine.VerifyHistory(); err != nil {
			fmt.Fprintf(a.out, "Verify failed: %v\n", err)
			return
		}
		fmt.Fprintln(a.out, "History verifies against current content")

	default:
		fmt.Fprintln(a.out, "Unknown history command. Use: save, load, or verify")
	}
}
