// Package prompt asks the user for calibration input on the terminal and
// prints status lines.
package prompt

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/pterm/pterm"

	"github.com/ayusman/handrange/internal/distance"
)

// ErrAborted is returned when the user cancels a prompt.
var ErrAborted = errors.New("prompt aborted")

// Prompter asks the questions the calibration flow needs.
type Prompter interface {
	// HandWidth asks for the palm width in centimetres.
	HandWidth() (float64, error)
	// UsePrevious asks whether the saved calibration at path should be reused.
	UsePrevious(path string) (bool, error)
}

// ParseHandWidth parses a typed palm width. It accepts a positive finite
// number with optional surrounding whitespace and an optional "cm" suffix.
func ParseHandWidth(s string) (float64, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "cm"))
	if s == "" {
		return 0, fmt.Errorf("%w: enter a number", distance.ErrInvalidInput)
	}
	w, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", distance.ErrInvalidInput, s)
	}
	if math.IsNaN(w) || math.IsInf(w, 0) || w <= 0 {
		return 0, fmt.Errorf("%w: enter a positive number", distance.ErrInvalidInput)
	}
	return w, nil
}

// Terminal prompts interactively with huh forms.
type Terminal struct {
	// Accessible switches huh to plain line prompts, for screen readers and
	// terminals without cursor control.
	Accessible bool
}

// NewTerminal creates a Terminal prompter.
func NewTerminal(accessible bool) *Terminal {
	return &Terminal{Accessible: accessible}
}

func (t *Terminal) HandWidth() (float64, error) {
	var raw string
	input := huh.NewInput().
		Title("Please enter your hand width in cm").
		Description("Measure straight across your palm.").
		Value(&raw).
		Validate(func(s string) error {
			_, err := ParseHandWidth(s)
			return err
		})

	if err := t.run(huh.NewGroup(input)); err != nil {
		return 0, err
	}
	return ParseHandWidth(raw)
}

func (t *Terminal) UsePrevious(path string) (bool, error) {
	use := true
	confirm := huh.NewConfirm().
		Title("Use previous calibration?").
		Description(path).
		Affirmative("Use it").
		Negative("Recalibrate").
		Value(&use)

	if err := t.run(huh.NewGroup(confirm)); err != nil {
		return false, err
	}
	return use, nil
}

func (t *Terminal) run(group *huh.Group) error {
	err := huh.NewForm(group).WithAccessible(t.Accessible).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return ErrAborted
	}
	if err != nil {
		return fmt.Errorf("prompt: %w", err)
	}
	return nil
}

// Fixed answers prompts from preset values. The command line uses it when
// the hand width is passed as a flag.
type Fixed struct {
	Width    float64
	Previous bool
}

func (f Fixed) HandWidth() (float64, error) {
	if !(f.Width > 0) || math.IsInf(f.Width, 0) {
		return 0, fmt.Errorf("%w: hand width %v", distance.ErrInvalidInput, f.Width)
	}
	return f.Width, nil
}

func (f Fixed) UsePrevious(string) (bool, error) {
	return f.Previous, nil
}

// Console prints user-facing status lines.
type Console struct {
	quiet bool
}

// NewConsole creates a Console. A quiet console prints nothing.
func NewConsole(quiet bool) *Console {
	pterm.Success.Prefix = pterm.Prefix{
		Text:  "✓",
		Style: pterm.NewStyle(pterm.FgGreen),
	}
	pterm.Error.Prefix = pterm.Prefix{
		Text:  "✗",
		Style: pterm.NewStyle(pterm.FgRed),
	}
	return &Console{quiet: quiet}
}

func (c *Console) Info(format string, args ...any) {
	if !c.quiet {
		pterm.Info.Printfln(format, args...)
	}
}

func (c *Console) Success(format string, args ...any) {
	if !c.quiet {
		pterm.Success.Printfln(format, args...)
	}
}

func (c *Console) Warning(format string, args ...any) {
	if !c.quiet {
		pterm.Warning.Printfln(format, args...)
	}
}

func (c *Console) Error(format string, args ...any) {
	if !c.quiet {
		pterm.Error.Printfln(format, args...)
	}
}

// Calibration renders a saved calibration as a table.
func (c *Console) Calibration(path string, rec distance.Record) error {
	if c.quiet {
		return nil
	}
	return pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData{
		{"File", "Focal length (px)", "Hand width (cm)"},
		{path, strconv.FormatFloat(rec.FocalLength, 'f', 2, 64), strconv.FormatFloat(rec.ReferenceHandWidth, 'f', 2, 64)},
	}).Render()
}
