package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ja7ad/benchprof/pkg/system/util"
	"github.com/ja7ad/benchprof/pkg/types"
)

// SummaryInput holds the two operator-supplied summary values as raw text.
type SummaryInput struct {
	ExecutionTime string
	Records       string
}

// SummarySource supplies SummaryInput at Finalizing.
type SummarySource interface {
	SummaryInput(ctx context.Context) (SummaryInput, error)
}

// StaticSource returns a fixed input, e.g. values given on the command line.
type StaticSource SummaryInput

func (s StaticSource) SummaryInput(context.Context) (SummaryInput, error) {
	return SummaryInput(s), nil
}

// PromptSource asks the operator on Out and reads one line per value from In.
type PromptSource struct {
	In  io.Reader
	Out io.Writer
}

const (
	PromptExecutionTime = "Enter execution time (in seconds): "
	PromptRecords       = "Enter the number of records used: "
)

func (p PromptSource) SummaryInput(ctx context.Context) (SummaryInput, error) {
	sc := bufio.NewScanner(p.In)
	var in SummaryInput
	for _, q := range []struct {
		prompt string
		dst    *string
	}{
		{PromptExecutionTime, &in.ExecutionTime},
		{PromptRecords, &in.Records},
	} {
		if err := ctx.Err(); err != nil {
			return in, err
		}
		fmt.Fprint(p.Out, q.prompt)
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return in, err
			}
			return in, io.ErrUnexpectedEOF
		}
		*q.dst = strings.TrimSpace(sc.Text())
	}
	return in, nil
}

// Summarize builds the summary row. A non-numeric execution time becomes 0.0
// and valid is false; the record count is kept as typed.
func Summarize(runID string, in SummaryInput) (s types.SessionSummary, valid bool) {
	secs, ok := util.ParseFloatOr(strings.TrimSpace(in.ExecutionTime), 0)
	return types.SessionSummary{
		RunID:            runID,
		Records:          strings.TrimSpace(in.Records),
		ExecutionSeconds: secs,
	}, ok
}
