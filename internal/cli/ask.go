package cli

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"doc-investigator/internal/app"
	"doc-investigator/internal/investigation"

	"github.com/spf13/cobra"
)

type askOptions struct {
	files       []string
	prompt      string
	temperature float64
	topP        float64
	verdict     string
	reason      string
}

func newAskCmd(opts *rootOptions) *cobra.Command {
	ao := &askOptions{}
	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Ask one question about local documents and record your verdict",
		Example: `  investigator ask --file lease.pdf --prompt "What is the notice period?"
  investigator ask -f a.docx -f b.xlsx -p "Summarise the totals" --verdict yes`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, opts, ao)
		},
	}
	cmd.Flags().StringSliceVarP(&ao.files, "file", "f", nil, "document to investigate (repeatable)")
	cmd.Flags().StringVarP(&ao.prompt, "prompt", "p", "", "question to ask")
	cmd.Flags().Float64Var(&ao.temperature, "temperature", 0, "sampling temperature (default from config)")
	cmd.Flags().Float64Var(&ao.topP, "top-p", 0, "nucleus sampling top_p (default from config)")
	cmd.Flags().StringVar(&ao.verdict, "verdict", "", "evaluate without prompting: yes or no")
	cmd.Flags().StringVar(&ao.reason, "reason", "", "reason recorded with the verdict")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("prompt")
	return cmd
}

func runAsk(cmd *cobra.Command, opts *rootOptions, ao *askOptions) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	log := newLogger(cfg, "stderr")

	a, err := app.New(ctx, cfg, log, app.Options{Model: opts.model})
	if err != nil {
		return err
	}
	defer a.Close()

	req := investigation.Request{Prompt: ao.prompt, Params: investigation.Params{}}
	for _, f := range ao.files {
		req.Documents = append(req.Documents, investigation.Document{Name: filepath.Base(f), Path: f})
	}
	if cmd.Flags().Changed("temperature") {
		req.Params[investigation.ParamTemperature] = ao.temperature
	}
	if cmd.Flags().Changed("top-p") {
		req.Params[investigation.ParamTopP] = ao.topP
	}

	res, err := a.Service.Submit(ctx, req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Answer: %s\n", res.State.Answer)
	if res.State.CacheHit == investigation.CacheHit {
		fmt.Fprintln(out, "(answered from cache)")
	}
	if res.Status != investigation.StatusSuspended {
		fmt.Fprintln(out, "Predefined answer, nothing to evaluate.")
		return nil
	}

	ev := investigation.Evaluation{Verdict: investigation.Verdict(ao.verdict), Reason: ao.reason}
	if ao.verdict == "" {
		ev, err = promptEvaluation(cmd.InOrStdin(), out)
		if err != nil {
			return err
		}
	}

	done, err := a.Service.Evaluate(ctx, res.Token, ev)
	if err != nil {
		return err
	}
	if !done.State.Logged {
		fmt.Fprintf(out, "Verdict %q not recorded: interaction log unavailable\n", done.State.Evaluation.Verdict)
		return nil
	}
	fmt.Fprintf(out, "Verdict %q recorded\n", done.State.Evaluation.Verdict)
	return nil
}

func promptEvaluation(in io.Reader, out io.Writer) (investigation.Evaluation, error) {
	r := bufio.NewReader(in)
	fmt.Fprint(out, "Is this answer correct? [yes/no]: ")
	verdict, err := readLine(r)
	if err != nil {
		return investigation.Evaluation{}, fmt.Errorf("read verdict: %w", err)
	}
	fmt.Fprint(out, "Reason (optional): ")
	reason, err := readLine(r)
	if err != nil {
		return investigation.Evaluation{}, fmt.Errorf("read reason: %w", err)
	}
	return investigation.Evaluation{
		Verdict: investigation.Verdict(strings.ToLower(verdict)),
		Reason:  reason,
	}, nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
