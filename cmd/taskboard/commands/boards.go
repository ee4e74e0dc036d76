package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/printer"
)

var boardsCmd = &cobra.Command{
	Use:   "boards",
	Short: "List boards",
	Long: `List all boards on the service with their IDs and list counts.

The board last opened in the UI is marked with *.`,
	Args: cobra.NoArgs,
	RunE: runBoards,
}

var cardsCmd = &cobra.Command{
	Use:   "cards <board>",
	Short: "List the active cards of a board",
	Long: `List the active (non-archived) cards of a board, grouped by list in
display order.

The board may be given by ID or by name (case-insensitive).

Examples:
  taskboard cards project-alpha
  taskboard cards "Project Alpha"`,
	Args: cobra.ExactArgs(1),
	RunE: runCards,
}

func init() {
	rootCmd.AddCommand(boardsCmd)
	rootCmd.AddCommand(cardsCmd)
}

func runBoards(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := stderrLogger(cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	boards, err := newClient(cfg, log).ListBoards(ctx)
	if err != nil {
		return serviceError(cfg, "list boards", err)
	}

	selected := ""
	if cache := openCache(cfg, log); cache != nil {
		defer cache.Close()
		if last, err := cache.LastBoard(ctx); err == nil {
			selected = last
		}
	}

	printer.Boards(cmd.OutOrStdout(), boards, selected)
	return nil
}

func runCards(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := stderrLogger(cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	client := newClient(cfg, log)
	boards, err := client.ListBoards(ctx)
	if err != nil {
		return serviceError(cfg, "list boards", err)
	}

	board, ok := matchBoard(boards, args[0])
	if !ok {
		return printer.Error(
			fmt.Sprintf("board %q not found", args[0]),
			"No board has that ID or name.",
			[]string{"List boards:\n  taskboard boards"},
		)
	}

	cards, err := client.ListCards(ctx, board.ID, false)
	if err != nil {
		return serviceError(cfg, "list cards", err)
	}

	printer.Cards(cmd.OutOrStdout(), board, cards)
	return nil
}

// matchBoard finds a board by exact ID, then by case-insensitive name.
func matchBoard(boards []model.Board, query string) (model.Board, bool) {
	for _, b := range boards {
		if b.ID == query {
			return b, true
		}
	}
	for _, b := range boards {
		if strings.EqualFold(b.Name, query) {
			return b, true
		}
	}
	return model.Board{}, false
}
