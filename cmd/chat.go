package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"kydx-console/backend"
	apperrors "kydx-console/errors"
	"kydx-console/session"
	"kydx-console/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var chatWidth int

// chatCmd runs a terminal conversation
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with KYDxBot in the terminal",
	Long: `Start a terminal conversation. Type a question and press enter.

Commands:
  /mydata      Overview of your data
  /visualize   Build a chart
  /infograph   Build an infographic
  /summarize   Summarize the conversation
  /directors   Director's Cut video of the latest table
  /reload      Refresh the data overview after loading new data
  /reset       Start over
  /quit        Exit`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger
		if logLevel == "" {
			// keep the transcript readable unless asked otherwise
			log = logger.WithOptions(zap.IncreaseLevel(zap.WarnLevel))
		}
		client := backend.New(cfg, log)
		r := &repl{
			ctrl:      session.New(client, session.OptionsFromConfig(cfg), log),
			in:        cmd.InOrStdin(),
			out:       cmd.OutOrStdout(),
			width:     chatWidth,
			mediaBase: client.BaseURL(),
		}
		return r.run(cmd.Context())
	},
}

func init() {
	chatCmd.Flags().IntVarP(&chatWidth, "width", "w", 0, "Terminal width for wrapping and labels (0 = no wrapping)")
	rootCmd.AddCommand(chatCmd)
}

type repl struct {
	ctrl      *session.Controller
	in        io.Reader
	out       io.Writer
	width     int
	mediaBase string
}

func (r *repl) run(ctx context.Context) error {
	res, err := r.ctrl.Start(ctx)
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	r.show(res)

	scanner := bufio.NewScanner(r.in)
	r.prompt()
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			r.prompt()
			continue
		}
		if line == "/quit" || line == "/exit" {
			return nil
		}
		r.handle(ctx, line)
		r.prompt()
	}
	return scanner.Err()
}

func (r *repl) handle(ctx context.Context, line string) {
	var res session.Result
	var err error

	switch {
	case line == "/reset":
		res, err = r.ctrl.Start(ctx)
	case line == "/reload":
		r.ctrl.InvalidateData()
		fmt.Fprintln(r.out, renderHint("Data marked as reloaded; /mydata will fetch a fresh overview."))
		return
	case strings.HasPrefix(line, "/"):
		a, ok := commands[line]
		if !ok {
			fmt.Fprintln(r.out, renderError("Unknown command "+line))
			return
		}
		res, err = r.ctrl.Trigger(ctx, a)
	default:
		res, err = r.ctrl.Submit(ctx, line)
	}

	if err != nil {
		fmt.Fprintln(r.out, renderError(userMessage(err)))
		return
	}
	r.show(res)
}

func (r *repl) show(res session.Result) {
	for _, m := range res.Messages {
		if m.IsUser() {
			continue
		}
		fmt.Fprintln(r.out, renderMessage(m, r.width, r.mediaBase))
	}
	if res.View != nil {
		fmt.Fprintln(r.out, renderView(res.View, r.mediaBase))
	}
}

func (r *repl) prompt() {
	snap := r.ctrl.Snapshot()
	if bar := renderAffordances(snap.Affordances, r.width); bar != "" {
		fmt.Fprintln(r.out, bar)
	}
	if snap.Wizarding() {
		fmt.Fprint(r.out, renderHint(fmt.Sprintf("(%d left) ", snap.Wizard.Remaining())))
	}
	fmt.Fprint(r.out, "> ")
}

func userMessage(err error) string {
	switch {
	case apperrors.IsBusy(err):
		return "Still working on the previous request."
	case apperrors.Is(err, apperrors.ErrWizardActive):
		return "Please answer the current question first."
	case apperrors.IsUnavailable(err):
		return "That action is not available right now."
	case apperrors.Is(err, utils.ErrInputTooLong):
		return fmt.Sprintf("Message is too long (max %d characters).", utils.MaxInputRunes)
	case apperrors.IsInvalidInput(err):
		return "Message cannot be empty."
	}
	return "Something went wrong."
}
