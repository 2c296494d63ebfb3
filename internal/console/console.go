// Package console runs the interactive counseling loop on a terminal.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/JoJeongHyeon/gongja-mailservice/internal/counsel"
	"github.com/JoJeongHyeon/gongja-mailservice/internal/knowledge"
)

// Counselor runs one worry through the pipeline.
type Counselor interface {
	Process(ctx context.Context, text string, prov counsel.Provenance) (*counsel.Outcome, error)
}

// ValidationError is an out-of-range or non-numeric menu selection.
type ValidationError struct {
	Input string
	Max   int
}

func (e *ValidationError) Error() string {
	if _, err := strconv.Atoi(strings.TrimSpace(e.Input)); err != nil {
		return "유효한 숫자를 입력해주세요."
	}
	return fmt.Sprintf("1부터 %d 사이의 숫자를 입력해주세요.", e.Max)
}

// ParseChoice validates a 1-based menu selection.
func ParseChoice(input string, max int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || n < 1 || n > max {
		return 0, &ValidationError{Input: input, Max: max}
	}
	return n, nil
}

const previewRunes = 50

var (
	errQuit      = errors.New("quit requested")
	errNoCatalog = errors.New("no predefined worries")
)

type line struct {
	text string
	err  error
}

type Console struct {
	in        *bufio.Reader
	out       io.Writer
	kb        *knowledge.Base
	counselor Counselor
	logger    *slog.Logger

	readOnce sync.Once
	lines    chan line
}

func New(in io.Reader, out io.Writer, kb *knowledge.Base, counselor Counselor, logger *slog.Logger) *Console {
	return &Console{
		in:        bufio.NewReader(in),
		out:       out,
		kb:        kb,
		counselor: counselor,
		logger:    logger,
		lines:     make(chan line, 1),
	}
}

// Run loops until quit/exit, end of input or ctx cancellation. Cancellation
// is honoured while a read is blocked. A failed worry is reported and the
// loop continues.
func (c *Console) Run(ctx context.Context) error {
	fmt.Fprintln(c.out, "\n고민 상담을 시작합니다.")
	fmt.Fprintln(c.out, "1: 직접 고민 입력하기")
	fmt.Fprintln(c.out, "2: 미리 정의된 고민에서 선택하기")
	fmt.Fprintln(c.out, "종료하려면 'quit' 또는 'exit'를 입력하세요.")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		choice, err := c.prompt(ctx, "\n선택해주세요 (1 또는 2): ")
		if err != nil {
			return c.stop(err)
		}
		if isQuit(choice) {
			return c.stop(errQuit)
		}

		var worry string
		switch choice {
		case "1":
			worry, err = c.prompt(ctx, "\n고민을 입력하세요: ")
			if err != nil {
				return c.stop(err)
			}
			if worry == "" {
				fmt.Fprintln(c.out, "고민을 입력해주세요.")
				continue
			}
		case "2":
			worry, err = c.SelectWorry(ctx)
			if errors.Is(err, errNoCatalog) {
				fmt.Fprintln(c.out, "미리 정의된 고민이 없습니다. 직접 입력해주세요.")
				continue
			}
			if err != nil {
				return c.stop(err)
			}
			fmt.Fprintln(c.out, "\n선택한 고민:", worry)
		default:
			fmt.Fprintln(c.out, "1 또는 2를 선택해주세요.")
			continue
		}

		c.counsel(ctx, worry)
	}
}

func (c *Console) counsel(ctx context.Context, worry string) {
	fmt.Fprintln(c.out, "\n고민을 분석중입니다...")
	out, err := c.counselor.Process(ctx, worry, counsel.Provenance{Source: counsel.SourceConsole})
	if err != nil {
		c.logger.Error("console worry failed", "error", err)
		errorColor.Fprintf(c.out, "오류가 발생했습니다: %v\n", err)
		return
	}
	PrintOutcome(c.out, out)
}

// SelectWorry walks the catalog: category first, then a worry inside it.
// Invalid numbers re-prompt; quit/exit ends the session.
func (c *Console) SelectWorry(ctx context.Context) (string, error) {
	if len(c.kb.Catalog) == 0 {
		return "", errNoCatalog
	}
	fmt.Fprintln(c.out, "\n=== 고민 카테고리 ===")
	for i, cat := range c.kb.Catalog {
		fmt.Fprintf(c.out, "%d. %s\n", i+1, cat.Name)
	}
	ci, err := c.choose(ctx, "\n카테고리 번호를 선택하세요: ", len(c.kb.Catalog))
	if err != nil {
		return "", err
	}
	cat := c.kb.Catalog[ci-1]

	fmt.Fprintf(c.out, "\n=== %s 관련 고민들 ===\n", cat.Name)
	for i, w := range cat.Worries {
		fmt.Fprintf(c.out, "%d. %s\n", i+1, preview(w))
	}
	wi, err := c.choose(ctx, "\n고민 번호를 선택하세요: ", len(cat.Worries))
	if err != nil {
		return "", err
	}
	return cat.Worries[wi-1], nil
}

func (c *Console) choose(ctx context.Context, label string, max int) (int, error) {
	for {
		text, err := c.prompt(ctx, label)
		if err != nil {
			return 0, err
		}
		if isQuit(text) {
			return 0, errQuit
		}
		n, err := ParseChoice(text, max)
		var verr *ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintln(c.out, verr.Error())
			continue
		}
		return n, nil
	}
}

// prompt prints label and waits for one trimmed line or ctx cancellation.
// A final line without a newline is still returned.
func (c *Console) prompt(ctx context.Context, label string) (string, error) {
	fmt.Fprint(c.out, label)
	c.readOnce.Do(func() { go c.readLines() })
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case l, ok := <-c.lines:
		if !ok {
			return "", io.EOF
		}
		return l.text, l.err
	}
}

// readLines feeds c.lines until the reader fails. A read blocked on the
// terminal outlives a cancelled session; the process exits around it.
func (c *Console) readLines() {
	defer close(c.lines)
	for {
		s, err := c.in.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && s != "") {
			c.lines <- line{err: err}
			return
		}
		c.lines <- line{text: strings.TrimSpace(s)}
		if err != nil {
			return
		}
	}
}

// stop maps the reason a session ended to Run's result.
func (c *Console) stop(err error) error {
	switch {
	case errors.Is(err, errQuit):
		fmt.Fprintln(c.out, "상담을 종료합니다.")
		return nil
	case errors.Is(err, io.EOF):
		return nil
	}
	return err
}

func isQuit(s string) bool {
	s = strings.ToLower(s)
	return s == "quit" || s == "exit"
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= previewRunes {
		return s
	}
	return string(r[:previewRunes]) + "..."
}
