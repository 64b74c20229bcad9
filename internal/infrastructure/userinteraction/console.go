package userinteraction

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"browser-replay/internal/application/port/output"
	"browser-replay/internal/domain/entity"

	"github.com/fatih/color"
)

var _ output.UserInteractionPort = (*ConsoleUserInteraction)(nil)

const maxRequiredAttempts = 3

type ConsoleUserInteraction struct {
	reader *bufio.Reader
	out    io.Writer
}

func NewConsoleUserInteraction() *ConsoleUserInteraction {
	return NewConsole(os.Stdin, color.Output)
}

func NewConsole(in io.Reader, out io.Writer) *ConsoleUserInteraction {
	return &ConsoleUserInteraction{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

func (u *ConsoleUserInteraction) AskQuestion(ctx context.Context, question string) (string, error) {
	color.New(color.FgYellow, color.Bold).Fprintf(u.out, "\n[USER INPUT REQUIRED] ")
	fmt.Fprintf(u.out, "%s\n> ", question)
	return u.readLine(ctx)
}

// AnswerInput prompts for a single parameter value. Required fields are
// asked again when left blank.
func (u *ConsoleUserInteraction) AnswerInput(ctx context.Context, req entity.InputRequest) (string, error) {
	label := req.FieldLabel
	if label == "" {
		label = req.FieldName
	}
	color.New(color.FgCyan, color.Bold).Fprintf(u.out, "\n%s", label)
	if !req.Required {
		color.New(color.Faint).Fprint(u.out, " (optional)")
	}
	fmt.Fprintln(u.out)
	if req.Prompt != "" {
		fmt.Fprintf(u.out, "  %s\n", req.Prompt)
	}
	if req.Example != "" {
		color.New(color.Faint).Fprintf(u.out, "  e.g. %s\n", req.Example)
	}

	for attempt := 1; ; attempt++ {
		fmt.Fprint(u.out, "> ")
		answer, err := u.readLine(ctx)
		if err != nil {
			return "", err
		}
		if answer != "" || !req.Required {
			return answer, nil
		}
		if attempt >= maxRequiredAttempts {
			return "", fmt.Errorf("no value given for required field %q", req.FieldName)
		}
		color.New(color.FgRed).Fprintln(u.out, "  a value is required")
	}
}

func (u *ConsoleUserInteraction) ShowPlan(ctx context.Context, plan *entity.Plan) {
	if plan == nil {
		return
	}
	m := plan.Metadata
	color.New(color.FgCyan, color.Bold).Fprintf(u.out, "\n━━━ %s ━━━\n", m.Name)
	dim := color.New(color.Faint)
	dim.Fprintf(u.out, "id: %s\n", m.ID)
	if m.Description != "" {
		fmt.Fprintf(u.out, "%s\n", m.Description)
	}
	if m.URL != "" {
		fmt.Fprintf(u.out, "URL: %s\n", m.URL)
	}
	if len(m.RequiredParams) > 0 {
		fmt.Fprintf(u.out, "Parameters: %s\n", strings.Join(m.RequiredParams, ", "))
	}
	if len(m.Tags) > 0 {
		dim.Fprintf(u.out, "Tags: %s\n", strings.Join(m.Tags, ", "))
	}
	for _, step := range plan.Steps {
		fmt.Fprintf(u.out, "  %2d. %-10s %s\n", step.SequenceID, step.Action, truncate(step.Description, 100))
	}
}

func (u *ConsoleUserInteraction) ShowResult(ctx context.Context, result *entity.ExecutionResult) {
	if result == nil {
		return
	}
	status := color.New(color.FgGreen, color.Bold)
	icon := "✓"
	if result.Status != entity.ExecutionSuccess {
		status = color.New(color.FgRed, color.Bold)
		icon = "❌"
	}
	status.Fprintf(u.out, "\n%s %s", icon, result.Status)
	fmt.Fprintf(u.out, " | steps %d/%d | %dms\n", result.StepsCompleted, result.TotalSteps, result.ExecutionTimeMs)
	if result.ErrorMessage != "" {
		color.New(color.FgRed).Fprint(u.out, "Error: ")
		fmt.Fprintln(u.out, truncate(result.ErrorMessage, 300))
	}

	if final, ok := result.FinalResult(); ok {
		value, _ := final.Metadata[entity.MetaValue].(string)
		if value == "" {
			value = truncate(final.Content, 500)
		}
		color.New(color.FgGreen).Fprint(u.out, "Result: ")
		fmt.Fprintln(u.out, value)
	}

	dim := color.New(color.Faint)
	for _, a := range result.Artifacts {
		dim.Fprintf(u.out, "  - %s (%s)\n", a.Name, a.Type)
	}
}

func (u *ConsoleUserInteraction) readLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	answer, err := u.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && answer != "") {
		return "", fmt.Errorf("failed to read user input: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen]) + "..."
}
