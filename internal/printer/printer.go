package printer

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/reorder"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
	faint  = color.New(color.Faint)
	bold   = color.New(color.Bold)
)

// Success prints a success message in green with a checkmark prefix.
func Success(w io.Writer, format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "✓") {
		msg = "✓ " + msg
	}
	green.Fprintln(w, msg)
}

// Warning prints a warning message in yellow.
func Warning(w io.Writer, format string, a ...any) {
	yellow.Fprintf(w, "! %s\n", fmt.Sprintf(format, a...))
}

// Error prints a formatted error with an explanation and suggestions to
// stderr and returns an error carrying only the title, for cobra.
func Error(title string, explanation string, suggestions []string) error {
	return Fprint(os.Stderr, title, explanation, suggestions)
}

// Fprint is Error writing to w.
func Fprint(w io.Writer, title string, explanation string, suggestions []string) error {
	red.Fprintf(w, "%s\n", title)

	if explanation != "" {
		fmt.Fprintf(w, "\n%s\n", explanation)
	}

	if len(suggestions) > 0 {
		fmt.Fprintf(w, "\n")
		if len(suggestions) == 1 {
			fmt.Fprintf(w, "%s\n", suggestions[0])
		} else {
			fmt.Fprintf(w, "Either:\n")
			for i, suggestion := range suggestions {
				fmt.Fprintf(w, "  %d. %s\n", i+1, suggestion)
			}
		}
	}

	return fmt.Errorf("%s", title)
}

// Boards prints one board per line, marking the selected one.
func Boards(w io.Writer, boards []model.Board, selected string) {
	if len(boards) == 0 {
		faint.Fprintln(w, "No boards.")
		return
	}
	for _, b := range boards {
		marker := "  "
		if b.ID == selected {
			marker = cyan.Sprint("* ")
		}
		fmt.Fprintf(w, "%s%s %s %s\n",
			marker,
			bold.Sprint(b.Name),
			faint.Sprintf("(%s)", b.ID),
			faint.Sprintf("%d lists", len(b.Lists)),
		)
	}
}

// Cards prints the active cards of board grouped by list, in display order.
func Cards(w io.Writer, board model.Board, cards []model.Card) {
	bold.Fprintln(w, board.Name)
	for _, l := range board.Lists {
		listCards := reorder.ListCards(cards, l.ID)
		cyan.Fprintf(w, "\n%s %s\n", l.Name, faint.Sprintf("[%d]", len(listCards)))
		if len(listCards) == 0 {
			faint.Fprintln(w, "  (empty)")
			continue
		}
		for _, c := range listCards {
			fmt.Fprintf(w, "  %s %s", c.Title, faint.Sprintf("(%s)", c.ID))
			if len(c.Labels) > 0 {
				fmt.Fprintf(w, " %s", yellow.Sprint(strings.Join(c.Labels, ", ")))
			}
			if done, total := c.ChecklistProgress(); total > 0 {
				fmt.Fprintf(w, " %s", faint.Sprintf("%d/%d", done, total))
			}
			fmt.Fprintln(w)
		}
	}
}

// Event prints a received push notification.
func Event(w io.Writer, ev model.PushEvent, received time.Time) {
	kind := cyan.Sprint(string(ev.Type))
	if ev.Type == model.EventBoardUpdated {
		kind = yellow.Sprint(string(ev.Type))
	}
	fmt.Fprintf(w, "%s %s %s\n",
		faint.Sprint(received.Format("15:04:05")),
		kind,
		ev.BoardID,
	)
}
