package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kalambet/ainoter/internal/config"
	"github.com/kalambet/ainoter/internal/note"
	"github.com/kalambet/ainoter/internal/reminder"
	"github.com/kalambet/ainoter/internal/storage"
)

const listTime = "2006-01-02 15:04"

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func notFound(what string, id int64, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%s %d not found", what, id)
	}
	return err
}

// --- register ---

func newRegisterCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "register [username]",
		Short: "Create a local account",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var username string
			if len(args) == 1 {
				username = args[0]
			} else {
				u, err := resolveUser(opts)
				if err != nil {
					return err
				}
				username = u
			}

			password, err := readNewPassword(username)
			if err != nil {
				return err
			}

			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			acc, err := e.accounts.Register(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			printSuccess("Registered %s (id %d)", acc.Username, acc.ID)
			return nil
		},
	}
}

func readNewPassword(username string) (string, error) {
	if p, ok := os.LookupEnv("AINOTER_PASSWORD"); ok {
		return p, nil
	}
	first, err := readPassword(fmt.Sprintf("Password for %s: ", username))
	if err != nil {
		return "", err
	}
	second, err := readPassword("Repeat password: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("passwords do not match")
	}
	return first, nil
}

// --- notes ---

func newNotesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Manage notes",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List notes, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()
			acc, err := e.login(cmd.Context(), opts)
			if err != nil {
				return err
			}

			notes, err := e.notes.List(cmd.Context(), acc.ID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(notes) == 0 {
				fmt.Fprintln(out, "No notes.")
				return nil
			}
			for _, n := range notes {
				title := n.Title
				if title == "" {
					title = faint("(untitled)")
				}
				fmt.Fprintf(out, "%s  %s  %s\n", idCol(fmt.Sprintf("%4d", n.ID)), n.CreatedAt.Local().Format(listTime), truncate(title, 80))
			}
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()
			acc, err := e.login(cmd.Context(), opts)
			if err != nil {
				return err
			}

			n, err := e.notes.Load(cmd.Context(), acc.ID, id)
			if err != nil {
				return notFound("note", id, err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", idCol(fmt.Sprintf("#%d", n.ID)), bold(n.Title))
			fmt.Fprintln(out, faint(fmt.Sprintf("created %s, updated %s",
				n.CreatedAt.Local().Format(listTime), n.UpdatedAt.Local().Format(listTime))))
			for _, b := range n.Blocks {
				fmt.Fprintln(out)
				switch b.Kind() {
				case note.KindText:
					fmt.Fprintln(out, b.Body())
				case note.KindImage:
					fmt.Fprintf(out, "[image] %s\n", e.images.Resolve(b.Path()))
				}
			}
			return nil
		},
	}

	add := &cobra.Command{
		Use:   "add",
		Short: "Create a note",
		Long: `Create a note from an ordered list of blocks.

Examples:
  ainoter notes add --title "Trip" --block "text:Packing list" --block "image:~/Pictures/map.png"
  ainoter notes add --block "text:Call the plumber"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			title, _ := cmd.Flags().GetString("title")
			raw, _ := cmd.Flags().GetStringArray("block")
			blocks, err := parseBlocks(raw)
			if err != nil {
				return err
			}

			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()
			acc, err := e.login(cmd.Context(), opts)
			if err != nil {
				return err
			}

			n, err := e.notes.Save(cmd.Context(), acc.ID, note.Draft{Title: title, Blocks: blocks})
			if err != nil {
				return err
			}
			printSuccess("Saved note %d", n.ID)
			return nil
		},
	}
	add.Flags().String("title", "", "note title")
	add.Flags().StringArray("block", nil, `content block, "text:<body>" or "image:<path>" (repeatable, kept in order)`)

	edit := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a note's title or content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			raw, _ := cmd.Flags().GetStringArray("block")
			blocks, err := parseBlocks(raw)
			if err != nil {
				return err
			}
			appendBlocks, _ := cmd.Flags().GetBool("append")

			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()
			acc, err := e.login(cmd.Context(), opts)
			if err != nil {
				return err
			}

			n, err := e.notes.Load(cmd.Context(), acc.ID, id)
			if err != nil {
				return notFound("note", id, err)
			}
			d := note.Draft{ID: n.ID, Title: n.Title, Blocks: n.Blocks}
			if cmd.Flags().Changed("title") {
				d.Title, _ = cmd.Flags().GetString("title")
			}
			switch {
			case appendBlocks:
				d.Blocks = append(d.Blocks, blocks...)
			case cmd.Flags().Changed("block"):
				d.Blocks = blocks
			}

			if _, err := e.notes.Save(cmd.Context(), acc.ID, d); err != nil {
				return notFound("note", id, err)
			}
			printSuccess("Updated note %d", id)
			return nil
		},
	}
	edit.Flags().String("title", "", "new title")
	edit.Flags().StringArray("block", nil, `replacement content block, "text:<body>" or "image:<path>"`)
	edit.Flags().Bool("append", false, "append the given blocks instead of replacing the content")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()
			acc, err := e.login(cmd.Context(), opts)
			if err != nil {
				return err
			}

			if err := e.notes.Delete(cmd.Context(), acc.ID, id); err != nil {
				return notFound("note", id, err)
			}
			printSuccess("Deleted note %d", id)
			return nil
		},
	}

	importPDF := &cobra.Command{
		Use:   "import-pdf <file>",
		Short: "Create a note from the text of a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()
			acc, err := e.login(cmd.Context(), opts)
			if err != nil {
				return err
			}

			n, err := e.notes.ImportPDF(cmd.Context(), acc.ID, args[0])
			if err != nil {
				return err
			}
			printSuccess("Imported %q as note %d (%d blocks)", n.Title, n.ID, len(n.Blocks))
			return nil
		},
	}

	cmd.AddCommand(list, show, add, edit, del, importPDF)
	return cmd
}

// parseBlocks converts --block values into note blocks, keeping their order.
func parseBlocks(values []string) ([]note.Block, error) {
	blocks := make([]note.Block, 0, len(values))
	for _, v := range values {
		kind, body, ok := strings.Cut(v, ":")
		if !ok {
			return nil, fmt.Errorf("invalid block %q: want text:<body> or image:<path>", v)
		}
		switch strings.ToLower(kind) {
		case "text":
			blocks = append(blocks, note.Text(body))
		case "image":
			blocks = append(blocks, note.Image(expandHome(body)))
		default:
			return nil, fmt.Errorf("invalid block kind %q: want text or image", kind)
		}
	}
	return blocks, nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return home + path[1:]
}

// --- reminders ---

// dueFormats are the accepted spellings of an absolute due time, all in
// local time.
var dueFormats = []string{
	storage.DueLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// parseDue reads an absolute local time or a "+<duration>" offset from now.
func parseDue(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "+"); ok {
		d, err := time.ParseDuration(rest)
		if err != nil || d <= 0 {
			return time.Time{}, fmt.Errorf("invalid due offset %q", s)
		}
		return now.Add(d).Truncate(time.Second), nil
	}
	for _, layout := range dueFormats {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid due time %q: use YYYY-MM-DD HH:MM[:SS] or +<duration>", s)
}

func newRemindersCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "reminders",
		Aliases: []string{"reminder"},
		Short:   "Manage reminders",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List pending reminders, soonest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()
			acc, err := e.login(cmd.Context(), opts)
			if err != nil {
				return err
			}

			reminders, err := e.reminders.List(cmd.Context(), acc.ID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(reminders) == 0 {
				fmt.Fprintln(out, "No reminders.")
				return nil
			}
			for _, r := range reminders {
				fmt.Fprintf(out, "%s  %s  %s\n", idCol(fmt.Sprintf("%4d", r.ID)), storage.FormatDue(r.Due), truncate(r.Text, 80))
			}
			return nil
		},
	}

	add := &cobra.Command{
		Use:   "add",
		Short: "Schedule a reminder",
		Long: `Schedule a reminder at a local wall-clock time.

Examples:
  ainoter reminders add --text "Standup" --due "2026-10-16 09:30"
  ainoter reminders add --text "Tea" --due +5m`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, _ := cmd.Flags().GetString("text")
			dueStr, _ := cmd.Flags().GetString("due")
			if dueStr == "" {
				return errors.New("--due is required")
			}
			due, err := parseDue(dueStr, time.Now())
			if err != nil {
				return err
			}

			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()
			acc, err := e.login(cmd.Context(), opts)
			if err != nil {
				return err
			}

			r, err := e.reminders.Save(cmd.Context(), acc.ID, reminder.Reminder{Text: text, Due: due})
			if err != nil {
				return err
			}
			printSuccess("Reminder %d set for %s", r.ID, storage.FormatDue(r.Due))
			return nil
		},
	}
	add.Flags().String("text", "", "reminder text")
	add.Flags().String("due", "", `due time, "YYYY-MM-DD HH:MM[:SS]" or "+<duration>"`)

	edit := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a reminder's text or due time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()
			acc, err := e.login(cmd.Context(), opts)
			if err != nil {
				return err
			}

			r, err := e.reminders.Load(cmd.Context(), acc.ID, id)
			if err != nil {
				return notFound("reminder", id, err)
			}
			if cmd.Flags().Changed("text") {
				r.Text, _ = cmd.Flags().GetString("text")
			}
			if cmd.Flags().Changed("due") {
				dueStr, _ := cmd.Flags().GetString("due")
				if r.Due, err = parseDue(dueStr, time.Now()); err != nil {
					return err
				}
			}

			r, err = e.reminders.Save(cmd.Context(), acc.ID, r)
			if err != nil {
				return notFound("reminder", id, err)
			}
			printSuccess("Reminder %d set for %s", r.ID, storage.FormatDue(r.Due))
			return nil
		},
	}
	edit.Flags().String("text", "", "new text")
	edit.Flags().String("due", "", "new due time")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Cancel a reminder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()
			acc, err := e.login(cmd.Context(), opts)
			if err != nil {
				return err
			}

			if err := e.reminders.Delete(cmd.Context(), acc.ID, id); err != nil {
				return notFound("reminder", id, err)
			}
			printSuccess("Deleted reminder %d", id)
			return nil
		},
	}

	cmd.AddCommand(list, add, edit, del)
	return cmd
}

// --- ai ---

func newAICmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ai",
		Short: "Ask short questions and browse past answers",
	}

	ask := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question and wait for the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := strings.Join(args, " ")
			noWait, _ := cmd.Flags().GetBool("no-wait")

			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()
			acc, err := e.login(cmd.Context(), opts)
			if err != nil {
				return err
			}

			client := e.aiClient()
			// The answer is stored even if the wait below is interrupted.
			defer client.Wait()

			id, err := client.Submit(cmd.Context(), acc.ID, prompt)
			if err != nil {
				return err
			}
			if noWait {
				client.Wait()
				printSuccess("Stored exchange %d", id)
				return nil
			}

			printStep("Waiting for the answer...")
			ex, err := e.watcher().Wait(cmd.Context(), acc.ID, id)
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					return fmt.Errorf("exchange %d was deleted before it was answered", id)
				}
				printWarning("Stopped waiting; the answer will be stored as exchange %d", id)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), ex.Response)
			return nil
		},
	}
	ask.Flags().Bool("no-wait", false, "store the answer without printing it")

	list := &cobra.Command{
		Use:   "list",
		Short: "List past questions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()
			acc, err := e.login(cmd.Context(), opts)
			if err != nil {
				return err
			}

			exchanges, err := e.exchanges.List(cmd.Context(), acc.ID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(exchanges) == 0 {
				fmt.Fprintln(out, "No questions yet.")
				return nil
			}
			for _, ex := range exchanges {
				status := ""
				if ex.Pending() {
					status = faint(" (pending)")
				}
				fmt.Fprintf(out, "%s  %s  %s%s\n", idCol(fmt.Sprintf("%4d", ex.ID)),
					ex.CreatedAt.Local().Format(listTime), truncate(ex.Prompt, 80), status)
			}
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a question and its answer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()
			acc, err := e.login(cmd.Context(), opts)
			if err != nil {
				return err
			}

			ex, err := e.exchanges.Load(cmd.Context(), acc.ID, id)
			if err != nil {
				return notFound("exchange", id, err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n\n", bold("Q:"), ex.Prompt)
			if ex.Pending() {
				fmt.Fprintln(out, faint("(no answer yet)"))
				return nil
			}
			fmt.Fprintf(out, "%s %s\n", bold("A:"), ex.Response)
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a question and its answer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()
			acc, err := e.login(cmd.Context(), opts)
			if err != nil {
				return err
			}

			if err := e.exchanges.Delete(cmd.Context(), acc.ID, id); err != nil {
				return notFound("exchange", id, err)
			}
			printSuccess("Deleted exchange %d", id)
			return nil
		},
	}

	cmd.AddCommand(ask, list, show, del)
	return cmd
}

// --- config ---

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or update configuration",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, k := range config.ShowAll(cfg) {
				fmt.Fprintf(out, "  %s = %s\n", bold(k.Key), k.Value)
			}
			keyState := "not configured"
			if config.APIKey(cfg.Storage.DataDir) != "" {
				keyState = "configured"
			}
			fmt.Fprintf(out, "  %s = %s\n", bold("deepseek.api_key"), faint(keyState))
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long:  "Set a configuration value.\n\nValid keys: " + strings.Join(config.ValidKeys(), ", "),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			if err := config.SetKey(key, value); err != nil {
				return err
			}

			printSuccess("Set %s = %s", key, value)
			return nil
		},
	}

	unset := &cobra.Command{
		Use:   "unset <key>",
		Short: "Restore a configuration value to its default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.UnsetKey(args[0]); err != nil {
				return err
			}
			printSuccess("Unset %s", args[0])
			return nil
		},
	}

	setKey := &cobra.Command{
		Use:   "set-key [key]",
		Short: "Store the DeepSeek API key in the platform secret store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var key string
			if len(args) == 1 {
				key = args[0]
			} else {
				k, err := readSecret("DeepSeek API key: ")
				if err != nil {
					return err
				}
				key = k
			}
			key = strings.TrimSpace(key)
			if key == "" || key == config.PlaceholderAPIKey {
				return errors.New("refusing to store an empty or placeholder API key")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := config.SetAPIKey(cfg.Storage.DataDir, key); err != nil {
				return fmt.Errorf("storing API key: %w", err)
			}
			printSuccess("API key stored")
			return nil
		},
	}

	cmd.AddCommand(show, set, unset, setKey)
	return cmd
}

func readSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("stdin is not a terminal; pass the key as an argument")
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
