package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/peteragility/smartone/internal/fsutil"
	"github.com/peteragility/smartone/internal/stream"
)

var askCmd = &cobra.Command{
	Use:   "ask <query>",
	Short: "Ask a single question and print the transcript",
	Long: `Submit one query, wait for the agent to finish and print the
reconstructed transcript.

Output is rendered markdown on a terminal. Use --plain for raw markdown or
--json for the transcript blocks.

Example:
  smartone ask "What is the current time in New York?"
  smartone ask --json "Generate an image of a cat playing chess."
  smartone ask --out answer.md "Calculate (9876 / 12) * (34 + 56) - 123"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var (
	askJSON  bool
	askPlain bool
	askOut   string
)

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().BoolVar(&askJSON, "json", false, "Print the transcript as JSON")
	askCmd.Flags().BoolVar(&askPlain, "plain", false, "Print raw markdown without rendering")
	askCmd.Flags().StringVarP(&askOut, "out", "o", "", "Also write the transcript to this file")
}

// askResult is the --json output.
type askResult struct {
	QueryID string         `json:"query_id"`
	Query   string         `json:"query"`
	Blocks  []stream.Block `json:"blocks"`
	Images  []string       `json:"images,omitempty"`
	Error   string         `json:"error,omitempty"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cfg, false)
	if err != nil {
		return err
	}
	defer closeLog()

	source, closer, err := buildSource(cfg, logger)
	if err != nil {
		return err
	}
	defer closer.Close()

	query := strings.Join(args, " ")
	session := newSession(ctx, cfg, source, logger, panicHook(cmd, args, cfg, logger))
	if err := session.Submit(query); err != nil {
		return err
	}
	queryID := session.QueryID()

	res, err := awaitAnswer(ctx, session)
	if err != nil {
		return err
	}

	transcript := res.Blocks
	var payload []byte
	if askJSON {
		out := askResult{
			QueryID: queryID,
			Query:   query,
			Blocks:  transcript,
			Images:  transcript.Images(),
		}
		if out.Blocks == nil {
			out.Blocks = []stream.Block{}
		}
		if res.Err != nil {
			out.Error = res.Err.Error()
		}
		payload, err = json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding transcript: %w", err)
		}
		payload = append(payload, '\n')
	} else {
		payload = []byte(transcript.Markdown() + "\n")
	}

	if askOut != "" {
		if err := fsutil.WriteFileAtomic(askOut, payload, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", askOut, err)
		}
		logger.Info("transcript written", "path", askOut)
	}

	if err := writeAnswer(cmd.OutOrStdout(), payload); err != nil {
		return err
	}
	return res.Err
}

// awaitAnswer blocks until the worker finishes, then runs the final
// reconciliation step.
func awaitAnswer(ctx context.Context, session *stream.Session) (stream.TickResult, error) {
	if err := session.Wait(ctx); err != nil {
		return stream.TickResult{}, err
	}
	return session.Tick(), nil
}

func writeAnswer(w io.Writer, payload []byte) error {
	f, ok := w.(*os.File)
	if askJSON || askPlain || !ok || !term.IsTerminal(int(f.Fd())) {
		_, err := w.Write(payload)
		return err
	}

	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		width = 100
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(min(width, 120)),
	)
	if err != nil {
		_, werr := w.Write(payload)
		return werr
	}
	out, err := r.Render(string(payload))
	if err != nil {
		out = string(payload)
	}
	_, err = io.WriteString(w, out)
	return err
}
