package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	gosync "sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nhle/taskboard/internal/ident"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/reorder"
)

var (
	ErrNoBoard     = errors.New("no board selected")
	ErrUnknownList = errors.New("unknown list")
	ErrInvalidName = errors.New("name does not produce a valid identifier")
	ErrClosed      = errors.New("engine closed")
)

// DefaultListNames are used when a board is created without lists.
var DefaultListNames = []string{"Todo", "In Progress", "Done"}

// Gateway is the subset of the REST client the engine depends on.
type Gateway interface {
	ListBoards(ctx context.Context) ([]model.Board, error)
	CreateBoard(ctx context.Context, board model.Board) (*model.Board, error)
	UpdateBoard(ctx context.Context, id string, patch model.BoardPatch) (*model.Board, error)
	DeleteBoard(ctx context.Context, id string) error

	ListCards(ctx context.Context, boardID string, includeArchived bool) ([]model.Card, error)
	CreateCard(ctx context.Context, boardID string, patch model.CardPatch) (*model.Card, error)
	UpdateCard(ctx context.Context, boardID, cardID string, patch model.CardPatch) (*model.Card, error)
	DeleteCard(ctx context.Context, boardID, cardID string) error
	MoveCard(ctx context.Context, boardID, cardID string, req model.MoveRequest) (*model.Card, error)
	ArchiveCard(ctx context.Context, boardID, cardID string, archived bool) (*model.Card, error)
}

// Snapshotter persists committed state. Failures are logged, never
// returned to callers.
type Snapshotter interface {
	SaveBoards(ctx context.Context, boards []model.Board) error
	SaveCards(ctx context.Context, boardID string, cards []model.Card) error
	SetLastBoard(ctx context.Context, boardID string) error
}

// Snapshot is a read-only copy of the engine state.
type Snapshot struct {
	SelectedBoardID string
	Boards          []model.Board
	Cards           []model.Card
	Archived        []model.Card

	// Stale is true while the state comes from the local cache and no
	// refresh has been committed yet.
	Stale bool
}

// SelectedBoard returns the selected board, if it is among Boards.
func (s Snapshot) SelectedBoard() (model.Board, bool) {
	for _, b := range s.Boards {
		if b.ID == s.SelectedBoardID {
			return b, true
		}
	}
	return model.Board{}, false
}

// Engine owns the selected board and the cached board and card
// collections. Every mutation is confirmed by the server and followed by a
// refresh; the refresh result replaces the cache wholesale. Responses are
// checked against the live selection when they arrive, so a response for
// a board that is no longer selected is discarded.
//
// Engine is safe for concurrent use.
type Engine struct {
	gw      Gateway
	snaps   Snapshotter
	log     logrus.FieldLogger
	changed chan struct{}

	// persistMu orders snapshot writes.
	persistMu gosync.Mutex

	mu        gosync.Mutex
	selected  string
	preferred string
	boards    []model.Board
	cards     []model.Card
	archived  []model.Card
	stale     bool
	closed    bool

	// Identifiers seen during this session, so new lists and boards never
	// reuse one even after deletion.
	knownBoards map[string]bool
	knownLists  map[string]map[string]bool

	// Request sequence numbers; a response is applied only if no newer
	// request for the same collection has already been applied.
	boardsSeq, boardsApplied     uint64
	cardsSeq, cardsApplied       uint64
	archivedSeq, archivedApplied uint64
	archivedLoaded               bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithSnapshotter enables write-through of committed state.
func WithSnapshotter(s Snapshotter) Option {
	return func(e *Engine) { e.snaps = s }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) { e.log = l }
}

// New creates an engine backed by gw.
func New(gw Gateway, opts ...Option) *Engine {
	l := logrus.New()
	l.SetOutput(io.Discard)

	e := &Engine{
		gw:          gw,
		log:         l,
		changed:     make(chan struct{}, 1),
		knownBoards: make(map[string]bool),
		knownLists:  make(map[string]map[string]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.WithField("component", "sync")
	return e
}

// Changes signals after every committed state change. Signals coalesce;
// read Snapshot for the current state.
func (e *Engine) Changes() <-chan struct{} {
	return e.changed
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		SelectedBoardID: e.selected,
		Boards:          slices.Clone(e.boards),
		Cards:           slices.Clone(e.cards),
		Archived:        slices.Clone(e.archived),
		Stale:           e.stale,
	}
}

// SelectedBoardID returns the live selection.
func (e *Engine) SelectedBoardID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selected
}

// Prefer sets the board to select by default when nothing is selected,
// instead of the first board.
func (e *Engine) Prefer(boardID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.preferred = boardID
}

// Prime seeds the engine with cached state so something can be shown before
// the first refresh. It has no effect once a refresh has been committed.
func (e *Engine) Prime(boards []model.Board, selected string, cards []model.Card) {
	e.mu.Lock()
	if e.closed || e.boardsApplied > 0 || e.cardsApplied > 0 {
		e.mu.Unlock()
		return
	}
	e.boards = slices.Clone(boards)
	e.rememberBoardsLocked(boards)
	e.selected = selected
	e.cards = slices.Clone(cards)
	e.stale = true
	e.mu.Unlock()

	e.notify()
}

// Close stops the engine. Responses that arrive afterwards are discarded.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	close(e.changed)
}

// SelectBoard makes boardID the selected board and refreshes its cards.
// Results of refreshes issued for the previous selection are discarded.
func (e *Engine) SelectBoard(ctx context.Context, boardID string) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	changed := e.selected != boardID
	if changed {
		e.selected = boardID
		e.cards = nil
		e.archived = nil
		e.archivedLoaded = false
	}
	e.mu.Unlock()

	if changed {
		e.log.WithField("board", boardID).Debug("board selected")
		e.notify()
		e.persistSelection(ctx, boardID)
	}
	return e.RefreshCards(ctx)
}

// RefreshBoards refetches the board list. A selected board that no longer
// exists is deselected; when nothing is selected the preferred board (or
// the first one) is selected and its cards are refreshed.
func (e *Engine) RefreshBoards(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.boardsSeq++
	seq := e.boardsSeq
	e.mu.Unlock()

	boards, err := e.gw.ListBoards(ctx)
	if err != nil {
		return fmt.Errorf("refreshing boards: %w", err)
	}

	e.mu.Lock()
	if e.closed || seq <= e.boardsApplied {
		e.mu.Unlock()
		e.log.WithField("seq", seq).Debug("discarding stale board list")
		return nil
	}
	e.boardsApplied = seq
	e.boards = boards
	e.rememberBoardsLocked(boards)

	selectionChanged := false
	if e.selected != "" && !containsBoard(boards, e.selected) {
		e.log.WithField("board", e.selected).Info("selected board no longer exists")
		e.selected = ""
		e.cards = nil
		e.archived = nil
		e.archivedLoaded = false
		e.stale = false
		selectionChanged = true
	}
	if e.selected == "" && len(boards) > 0 {
		e.selected = boards[0].ID
		if e.preferred != "" && containsBoard(boards, e.preferred) {
			e.selected = e.preferred
		}
		e.cards = nil
		selectionChanged = true
	}
	selected := e.selected
	e.mu.Unlock()

	e.notify()
	e.persist(ctx, func() bool { return e.isLatest(&e.boardsApplied, seq) },
		func(ctx context.Context, s Snapshotter) error {
			return s.SaveBoards(ctx, boards)
		})

	if !selectionChanged {
		return nil
	}
	e.persistSelection(ctx, selected)
	if selected == "" {
		return nil
	}
	return e.RefreshCards(ctx)
}

// RefreshCards refetches the active cards of the selected board and
// replaces the card cache wholesale.
func (e *Engine) RefreshCards(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	boardID := e.selected
	if boardID == "" {
		e.mu.Unlock()
		return nil
	}
	e.cardsSeq++
	seq := e.cardsSeq
	e.mu.Unlock()

	cards, err := e.gw.ListCards(ctx, boardID, false)
	if err != nil {
		return fmt.Errorf("refreshing cards of board %s: %w", boardID, err)
	}

	e.mu.Lock()
	if e.closed || e.selected != boardID || seq <= e.cardsApplied {
		e.mu.Unlock()
		e.log.WithFields(logrus.Fields{
			"board": boardID,
			"seq":   seq,
		}).Debug("discarding stale card list")
		return nil
	}
	e.cardsApplied = seq
	e.cards = cards
	e.stale = false
	e.mu.Unlock()

	e.notify()
	e.persist(ctx, func() bool { return e.isLatest(&e.cardsApplied, seq) },
		func(ctx context.Context, s Snapshotter) error {
			return s.SaveCards(ctx, boardID, cards)
		})
	return nil
}

// LoadArchived fetches the whole card collection of the selected board and
// keeps only the archived cards.
func (e *Engine) LoadArchived(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	boardID := e.selected
	if boardID == "" {
		e.mu.Unlock()
		return ErrNoBoard
	}
	e.archivedSeq++
	seq := e.archivedSeq
	e.mu.Unlock()

	all, err := e.gw.ListCards(ctx, boardID, true)
	if err != nil {
		return fmt.Errorf("loading archived cards of board %s: %w", boardID, err)
	}
	archived := make([]model.Card, 0)
	for _, c := range all {
		if c.Archived {
			archived = append(archived, c)
		}
	}

	e.mu.Lock()
	if e.closed || e.selected != boardID || seq <= e.archivedApplied {
		e.mu.Unlock()
		return nil
	}
	e.archivedApplied = seq
	e.archived = archived
	e.archivedLoaded = true
	e.mu.Unlock()

	e.notify()
	return nil
}

// OnPushNotification reacts to a change signal. Signals for boards other
// than the selected one are ignored. For the selected board the board list
// is refreshed on board_updated, and the cards are always refreshed.
func (e *Engine) OnPushNotification(ctx context.Context, ev model.PushEvent) error {
	selected := e.SelectedBoardID()
	if selected == "" || ev.BoardID != selected {
		e.log.WithFields(logrus.Fields{
			"board": ev.BoardID,
			"type":  ev.Type,
		}).Debug("ignoring push for unselected board")
		return nil
	}

	var errs []error
	if ev.Type == model.EventBoardUpdated {
		if err := e.RefreshBoards(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := e.RefreshCards(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// === Card mutations ===

// CreateCard creates a card titled title at the end of listID.
func (e *Engine) CreateCard(ctx context.Context, listID, title string) (*model.Card, error) {
	board, _, err := e.selectedBoard()
	if err != nil {
		return nil, err
	}
	if !board.HasList(listID) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownList, listID)
	}

	title = strings.TrimSpace(title)
	created, err := e.gw.CreateCard(ctx, board.ID, model.CardPatch{Title: &title, List: &listID})
	if err != nil {
		return nil, fmt.Errorf("creating card: %w", err)
	}
	return created, e.RefreshCards(ctx)
}

// UpdateCard applies a partial update to a card of the selected board.
func (e *Engine) UpdateCard(ctx context.Context, cardID string, patch model.CardPatch) (*model.Card, error) {
	board, _, err := e.selectedBoard()
	if err != nil {
		return nil, err
	}
	if patch.List != nil && !board.HasList(*patch.List) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownList, *patch.List)
	}
	if patch.Checklist != nil {
		items := AssignChecklistIDs(*patch.Checklist)
		patch.Checklist = &items
	}

	updated, err := e.gw.UpdateCard(ctx, board.ID, cardID, patch)
	if err != nil {
		return nil, fmt.Errorf("updating card %s: %w", cardID, err)
	}
	return updated, e.RefreshCards(ctx)
}

// ArchiveCard archives or restores a card.
func (e *Engine) ArchiveCard(ctx context.Context, cardID string, archived bool) error {
	board, _, err := e.selectedBoard()
	if err != nil {
		return err
	}
	if _, err := e.gw.ArchiveCard(ctx, board.ID, cardID, archived); err != nil {
		return fmt.Errorf("archiving card %s: %w", cardID, err)
	}

	var errs []error
	if e.archivedIsLoaded() {
		if err := e.LoadArchived(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := e.RefreshCards(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// RestoreCard un-archives a card and refreshes both the archived and the
// active collections.
func (e *Engine) RestoreCard(ctx context.Context, cardID string) error {
	board, _, err := e.selectedBoard()
	if err != nil {
		return err
	}
	if _, err := e.gw.ArchiveCard(ctx, board.ID, cardID, false); err != nil {
		return fmt.Errorf("restoring card %s: %w", cardID, err)
	}
	return errors.Join(e.LoadArchived(ctx), e.RefreshCards(ctx))
}

// DeleteCard deletes a card of the selected board.
func (e *Engine) DeleteCard(ctx context.Context, cardID string) error {
	board, _, err := e.selectedBoard()
	if err != nil {
		return err
	}
	if err := e.gw.DeleteCard(ctx, board.ID, cardID); err != nil {
		return fmt.Errorf("deleting card %s: %w", cardID, err)
	}
	if e.archivedIsLoaded() {
		if err := e.LoadArchived(ctx); err != nil {
			return err
		}
	}
	return e.RefreshCards(ctx)
}

// MoveCard resolves dropping draggedID onto targetID (a card or a list ID)
// and sends the resulting move. The boolean is false when the drop is a
// no-op, in which case no request is made.
func (e *Engine) MoveCard(ctx context.Context, draggedID, targetID string) (reorder.Move, bool, error) {
	board, _, err := e.selectedBoard()
	if err != nil {
		return reorder.Move{}, false, err
	}

	e.mu.Lock()
	cards := slices.Clone(e.cards)
	e.mu.Unlock()

	mv, ok := reorder.Resolve(cards, draggedID, targetID)
	if !ok {
		return reorder.Move{}, false, nil
	}
	if !board.HasList(mv.ListID) {
		return mv, false, fmt.Errorf("%w: %s", ErrUnknownList, mv.ListID)
	}

	e.log.WithFields(logrus.Fields{
		"card":  mv.CardID,
		"list":  mv.ListID,
		"order": mv.Order,
	}).Debug("moving card")

	if _, err := e.gw.MoveCard(ctx, board.ID, mv.CardID, mv.Request()); err != nil {
		return mv, false, fmt.Errorf("moving card %s: %w", mv.CardID, err)
	}
	return mv, true, e.RefreshCards(ctx)
}

// === List mutations ===

// CreateList appends a list named name to the selected board. Its ID is
// derived from the name and never collides with any list ID seen on this
// board during the session.
func (e *Engine) CreateList(ctx context.Context, name string) (model.List, error) {
	board, err := e.listedBoard(ctx)
	if err != nil {
		return model.List{}, err
	}

	name = strings.TrimSpace(name)
	e.mu.Lock()
	id := ident.UniqueID(name, e.knownListsLocked(board.ID))
	e.mu.Unlock()
	if id == "" {
		return model.List{}, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	list := model.List{ID: id, Name: name}
	lists := append(slices.Clone(board.Lists), list)
	if _, err := e.gw.UpdateBoard(ctx, board.ID, model.BoardPatch{Lists: lists}); err != nil {
		return model.List{}, fmt.Errorf("creating list %q: %w", name, err)
	}

	e.mu.Lock()
	e.knownListsLocked(board.ID)[id] = true
	e.mu.Unlock()

	return list, e.RefreshBoards(ctx)
}

// RenameList changes the display name of a list. Its ID is unchanged.
func (e *Engine) RenameList(ctx context.Context, listID, name string) error {
	board, err := e.listedBoard(ctx)
	if err != nil {
		return err
	}
	if !board.HasList(listID) {
		return fmt.Errorf("%w: %s", ErrUnknownList, listID)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	lists := slices.Clone(board.Lists)
	for i := range lists {
		if lists[i].ID == listID {
			lists[i].Name = name
		}
	}
	if _, err := e.gw.UpdateBoard(ctx, board.ID, model.BoardPatch{Lists: lists}); err != nil {
		return fmt.Errorf("renaming list %s: %w", listID, err)
	}
	return e.RefreshBoards(ctx)
}

// DeleteList removes a list from the selected board. Confirmation is the
// caller's responsibility.
func (e *Engine) DeleteList(ctx context.Context, listID string) error {
	board, err := e.listedBoard(ctx)
	if err != nil {
		return err
	}
	if !board.HasList(listID) {
		return fmt.Errorf("%w: %s", ErrUnknownList, listID)
	}

	lists := slices.DeleteFunc(slices.Clone(board.Lists), func(l model.List) bool {
		return l.ID == listID
	})
	if _, err := e.gw.UpdateBoard(ctx, board.ID, model.BoardPatch{Lists: lists}); err != nil {
		return fmt.Errorf("deleting list %s: %w", listID, err)
	}
	return errors.Join(e.RefreshBoards(ctx), e.RefreshCards(ctx))
}

// === Board mutations ===

// CreateBoard creates a board named name with the given list names
// (DefaultListNames when empty), selects it, and returns it. The board ID
// is derived from the name and never collides with a board ID seen during
// the session.
func (e *Engine) CreateBoard(ctx context.Context, name string, listNames []string) (*model.Board, error) {
	name = strings.TrimSpace(name)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrClosed
	}
	taken := make(map[string]bool, len(e.knownBoards)+len(e.boards))
	for id := range e.knownBoards {
		taken[id] = true
	}
	for _, b := range e.boards {
		taken[b.ID] = true
	}
	e.mu.Unlock()

	id := ident.UniqueID(name, taken)
	if id == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	lists := buildLists(listNames)
	if len(lists) == 0 {
		lists = buildLists(DefaultListNames)
	}

	created, err := e.gw.CreateBoard(ctx, model.Board{ID: id, Name: name, Lists: lists})
	if err != nil {
		return nil, fmt.Errorf("creating board %q: %w", name, err)
	}

	e.mu.Lock()
	e.knownBoards[created.ID] = true
	e.mu.Unlock()

	if err := e.RefreshBoards(ctx); err != nil {
		return created, err
	}
	return created, e.SelectBoard(ctx, created.ID)
}

// DeleteBoard deletes a board. Confirmation is the caller's responsibility.
// When the deleted board was selected, the selection moves to the default
// board.
func (e *Engine) DeleteBoard(ctx context.Context, boardID string) error {
	if err := e.gw.DeleteBoard(ctx, boardID); err != nil {
		return fmt.Errorf("deleting board %s: %w", boardID, err)
	}
	return e.RefreshBoards(ctx)
}

// AssignChecklistIDs gives every checklist item without an ID a new one.
func AssignChecklistIDs(items []model.ChecklistItem) []model.ChecklistItem {
	out := slices.Clone(items)
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = uuid.New().String()
		}
	}
	return out
}

// buildLists turns display names into lists with IDs unique within the
// new board. Blank names are skipped.
func buildLists(names []string) []model.List {
	taken := make(map[string]bool)
	var lists []model.List
	for _, n := range names {
		n = strings.TrimSpace(n)
		id := ident.UniqueID(n, taken)
		if id == "" {
			continue
		}
		taken[id] = true
		lists = append(lists, model.List{ID: id, Name: n})
	}
	return lists
}

// selectedBoard returns the selected board. listed is false when the board
// list has not been fetched yet, in which case only the ID is known.
func (e *Engine) selectedBoard() (board model.Board, listed bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return model.Board{}, false, ErrClosed
	}
	if e.selected == "" {
		return model.Board{}, false, ErrNoBoard
	}
	for _, b := range e.boards {
		if b.ID == e.selected {
			return b, true, nil
		}
	}
	return model.Board{ID: e.selected}, false, nil
}

// listedBoard returns the selected board with its current lists, fetching
// the board list first when needed. List edits replace the whole list
// collection, so they must never start from an unknown one.
func (e *Engine) listedBoard(ctx context.Context) (model.Board, error) {
	board, listed, err := e.selectedBoard()
	if err != nil || listed {
		return board, err
	}
	want := board.ID
	if err := e.RefreshBoards(ctx); err != nil {
		return model.Board{}, err
	}
	board, listed, err = e.selectedBoard()
	if errors.Is(err, ErrNoBoard) || (err == nil && (!listed || board.ID != want)) {
		return model.Board{}, fmt.Errorf("%w: board %s no longer exists", ErrNoBoard, want)
	}
	if err != nil {
		return model.Board{}, err
	}
	return board, nil
}

func (e *Engine) archivedIsLoaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.archivedLoaded
}

// rememberBoardsLocked must be called with e.mu held.
func (e *Engine) rememberBoardsLocked(boards []model.Board) {
	for _, b := range boards {
		e.knownBoards[b.ID] = true
		known := e.knownListsLocked(b.ID)
		for _, l := range b.Lists {
			known[l.ID] = true
		}
	}
}

// knownListsLocked must be called with e.mu held.
func (e *Engine) knownListsLocked(boardID string) map[string]bool {
	known, ok := e.knownLists[boardID]
	if !ok {
		known = make(map[string]bool)
		e.knownLists[boardID] = known
	}
	return known
}

func (e *Engine) isLatest(applied *uint64, seq uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return *applied == seq
}

// notify signals a state change without blocking.
func (e *Engine) notify() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	select {
	case e.changed <- struct{}{}:
	default:
	}
}

// persist runs write against the snapshotter if one is configured and
// still is the latest commit.
func (e *Engine) persist(
	ctx context.Context,
	latest func() bool,
	write func(context.Context, Snapshotter) error,
) {
	if e.snaps == nil {
		return
	}
	e.persistMu.Lock()
	defer e.persistMu.Unlock()
	if !latest() {
		return
	}
	if err := write(ctx, e.snaps); err != nil {
		e.log.WithError(err).Warn("saving snapshot failed")
	}
}

func (e *Engine) persistSelection(ctx context.Context, boardID string) {
	e.persist(ctx, func() bool { return e.SelectedBoardID() == boardID },
		func(ctx context.Context, s Snapshotter) error {
			return s.SetLastBoard(ctx, boardID)
		})
}

func containsBoard(boards []model.Board, id string) bool {
	return slices.ContainsFunc(boards, func(b model.Board) bool { return b.ID == id })
}
