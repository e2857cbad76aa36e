package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/madukaneranga/Kixora-sub002/internal/domain"
	"github.com/madukaneranga/Kixora-sub002/internal/event"
	"github.com/madukaneranga/Kixora-sub002/internal/repository"
	apperrors "github.com/madukaneranga/Kixora-sub002/pkg/errors"
)

// Cart operation upper-bound limits to prevent abuse.
const (
	// MaxQuantityPerLine is the maximum quantity allowed for a single cart line.
	MaxQuantityPerLine = 100
	// MaxLinesPerCart is the maximum number of distinct lines allowed in a cart.
	MaxLinesPerCart = 50
	// MaxPriceCents is the maximum unit price in cents allowed per line.
	MaxPriceCents = 100_000_00
)

// AddLineInput holds the parameters for adding a line to the cart. Prices are
// snapshots taken by the caller at display time.
type AddLineInput struct {
	ProductID string `json:"product_id" validate:"required"`
	VariantID string `json:"variant_id" validate:"required"`
	Title     string `json:"title" validate:"required"`
	UnitPrice int64  `json:"unit_price" validate:"gte=0"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

// UpdateResult is the outcome of a stock-gated quantity update. A shortfall
// is a first-class result, not an error: OK is false and Available carries
// the point-in-time stock count so the caller can render "Only N available".
type UpdateResult struct {
	OK        bool         `json:"ok"`
	Available int          `json:"available"`
	Cart      *domain.Cart `json:"cart"`
}

// MergeResult is the outcome of an identity transition. Notice is a single
// consolidated human-readable message when the merge clamped or dropped
// lines; empty when nothing was adjusted.
type MergeResult struct {
	Cart   *domain.Cart `json:"cart"`
	Notice string       `json:"notice,omitempty"`
}

// session is one device's cart plus its serialization state. The session
// mutex guards the cart structure; lineLocks are the per-line in-flight
// markers that serialize overlapping updates targeting the same line while
// letting different lines proceed concurrently. lastSeen is guarded by the
// engine mutex, not the session mutex.
type session struct {
	mu        sync.Mutex
	cart      *domain.Cart
	lineLocks map[string]*sync.Mutex
	lastSeen  time.Time
}

func (s *session) lineLock(lineID string) *sync.Mutex {
	if l, ok := s.lineLocks[lineID]; ok {
		return l
	}
	l := &sync.Mutex{}
	s.lineLocks[lineID] = l
	return l
}

// Engine is the cart reconciliation engine. It owns the per-session local
// carts, keeps them functional when the mirror store is unreachable, and
// merges them with the server-persisted mirror on identity transitions.
// The local cart is always authoritative; the mirror converges via resync.
type Engine struct {
	mirror        repository.CartMirrorRepository
	ledger        *Ledger
	producer      *event.Producer
	logger        *slog.Logger
	remoteTimeout time.Duration
	sessionTTL    time.Duration

	mu       sync.Mutex
	sessions map[string]*session
}

// NewEngine creates a new cart reconciliation engine. remoteTimeout bounds
// every call to the mirror store; on expiry the call fails soft and the
// local cart stands. Sessions idle longer than sessionTTL are evicted;
// bound carts survive in the mirror and rebuild through the identity merge.
func NewEngine(
	mirror repository.CartMirrorRepository,
	ledger *Ledger,
	producer *event.Producer,
	logger *slog.Logger,
	remoteTimeout time.Duration,
	sessionTTL time.Duration,
) *Engine {
	return &Engine{
		mirror:        mirror,
		ledger:        ledger,
		producer:      producer,
		logger:        logger,
		remoteTimeout: remoteTimeout,
		sessionTTL:    sessionTTL,
		sessions:      make(map[string]*session),
	}
}

func (e *Engine) session(sessionID string) *session {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now().UTC()
	if s, ok := e.sessions[sessionID]; ok {
		s.lastSeen = now
		return s
	}

	e.evictIdleLocked(now)

	s := &session{
		cart: &domain.Cart{
			ID:        uuid.New().String(),
			Lines:     []domain.CartLine{},
			Currency:  "USD",
			CreatedAt: now,
			UpdatedAt: now,
		},
		lineLocks: make(map[string]*sync.Mutex),
		lastSeen:  now,
	}
	e.sessions[sessionID] = s
	return s
}

// evictIdleLocked drops sessions idle past the TTL. It runs whenever a new
// session is created, so the map only grows after shedding expired entries.
// An evicted anonymous cart rebuilds empty on the next touch, the same
// outcome as an expired mirror document.
func (e *Engine) evictIdleLocked(now time.Time) {
	if e.sessionTTL <= 0 {
		return
	}
	for id, s := range e.sessions {
		if now.Sub(s.lastSeen) > e.sessionTTL {
			delete(e.sessions, id)
		}
	}
}

// GetCart returns a snapshot of the session's cart read model.
func (e *Engine) GetCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}

	s := e.session(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()

	return cloneCart(s.cart), nil
}

// AddLine appends a line or merges quantity into an existing line for the
// same variant. There is no stock check at add time; shortfalls surface on
// the stock-gated update and at merge/checkout. The mirror is resynced when
// the cart is bound to an identity.
func (e *Engine) AddLine(ctx context.Context, sessionID string, input AddLineInput) (*domain.Cart, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}
	if input.ProductID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}
	if input.VariantID == "" {
		return nil, apperrors.InvalidInput("variant id is required")
	}
	if input.Quantity <= 0 {
		return nil, apperrors.InvalidInput("quantity must be greater than 0")
	}
	if input.Quantity > MaxQuantityPerLine {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerLine))
	}
	if input.UnitPrice < 0 {
		return nil, apperrors.InvalidInput("unit price must not be negative")
	}
	if input.UnitPrice > MaxPriceCents {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unit price must not exceed %d cents", MaxPriceCents))
	}

	s := e.session(sessionID)
	s.mu.Lock()

	cart := s.cart
	if idx := cart.FindLineByVariant(input.VariantID); idx >= 0 {
		newQty := cart.Lines[idx].Quantity + input.Quantity
		if newQty > MaxQuantityPerLine {
			s.mu.Unlock()
			return nil, apperrors.InvalidInput(fmt.Sprintf("combined quantity must not exceed %d", MaxQuantityPerLine))
		}
		cart.Lines[idx].Quantity = newQty
		cart.Lines[idx].UnitPrice = input.UnitPrice
		cart.Lines[idx].Title = input.Title
	} else {
		if len(cart.Lines) >= MaxLinesPerCart {
			s.mu.Unlock()
			return nil, apperrors.InvalidInput(fmt.Sprintf("cart must not contain more than %d lines", MaxLinesPerCart))
		}
		cart.Lines = append(cart.Lines, domain.CartLine{
			ID:        uuid.New().String(),
			ProductID: input.ProductID,
			VariantID: input.VariantID,
			Title:     input.Title,
			UnitPrice: input.UnitPrice,
			Quantity:  input.Quantity,
		})
	}
	cart.UpdatedAt = time.Now().UTC()

	snapshot := cloneCart(cart)
	s.mu.Unlock()

	e.Resync(ctx, snapshot)
	e.publishCartUpdated(ctx, snapshot)

	return snapshot, nil
}

// UpdateQuantity performs a stock-gated quantity change on one line. A
// non-positive quantity delegates to RemoveLine. Overlapping updates for
// the same line are serialized by the line's lock; updates to different
// lines proceed concurrently. On a shortfall the line is left untouched and
// the result carries the actual available count.
func (e *Engine) UpdateQuantity(ctx context.Context, sessionID, lineID string, quantity int) (UpdateResult, error) {
	if sessionID == "" {
		return UpdateResult{}, apperrors.InvalidInput("session id is required")
	}
	if lineID == "" {
		return UpdateResult{}, apperrors.InvalidInput("line id is required")
	}

	if quantity <= 0 {
		cart, err := e.RemoveLine(ctx, sessionID, lineID)
		if err != nil {
			return UpdateResult{}, err
		}
		return UpdateResult{OK: true, Cart: cart}, nil
	}

	if quantity > MaxQuantityPerLine {
		return UpdateResult{}, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerLine))
	}

	s := e.session(sessionID)

	s.mu.Lock()
	idx := s.cart.FindLine(lineID)
	if idx < 0 {
		s.mu.Unlock()
		return UpdateResult{}, apperrors.NotFound("cart line", lineID)
	}
	variantID := s.cart.Lines[idx].VariantID
	lock := s.lineLock(lineID)
	s.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()

	avail, err := e.ledger.CheckAvailability(ctx, variantID, quantity)
	if err != nil {
		return UpdateResult{}, fmt.Errorf("stock-gated update: %w", err)
	}

	if !avail.CanSatisfy(quantity) {
		s.mu.Lock()
		snapshot := cloneCart(s.cart)
		s.mu.Unlock()

		e.logger.InfoContext(ctx, "quantity update rejected by stock gate",
			slog.String("line_id", lineID),
			slog.String("variant_id", variantID),
			slog.Int("requested", quantity),
			slog.Int("available", avail.Available),
		)

		return UpdateResult{OK: false, Available: avail.Available, Cart: snapshot}, nil
	}

	s.mu.Lock()
	// The line may have been removed while waiting on the line lock.
	idx = s.cart.FindLine(lineID)
	if idx < 0 {
		s.mu.Unlock()
		return UpdateResult{}, apperrors.NotFound("cart line", lineID)
	}
	s.cart.Lines[idx].Quantity = quantity
	s.cart.Lines[idx].CachedMaxStock = avail.Available
	s.cart.UpdatedAt = time.Now().UTC()
	snapshot := cloneCart(s.cart)
	s.mu.Unlock()

	e.Resync(ctx, snapshot)
	e.publishCartUpdated(ctx, snapshot)

	return UpdateResult{OK: true, Available: avail.Available, Cart: snapshot}, nil
}

// RemoveLine unconditionally removes a line and resyncs the mirror.
func (e *Engine) RemoveLine(ctx context.Context, sessionID, lineID string) (*domain.Cart, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}

	s := e.session(sessionID)
	s.mu.Lock()

	idx := s.cart.FindLine(lineID)
	if idx < 0 {
		s.mu.Unlock()
		return nil, apperrors.NotFound("cart line", lineID)
	}
	s.cart.Lines = append(s.cart.Lines[:idx], s.cart.Lines[idx+1:]...)
	s.cart.UpdatedAt = time.Now().UTC()
	delete(s.lineLocks, lineID)

	snapshot := cloneCart(s.cart)
	s.mu.Unlock()

	e.Resync(ctx, snapshot)
	e.publishCartUpdated(ctx, snapshot)

	return snapshot, nil
}

// Clear empties the cart and pushes the empty state to the mirror.
func (e *Engine) Clear(ctx context.Context, sessionID string) (*domain.Cart, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}

	s := e.session(sessionID)
	s.mu.Lock()

	s.cart.Lines = []domain.CartLine{}
	s.cart.UpdatedAt = time.Now().UTC()
	s.lineLocks = make(map[string]*sync.Mutex)

	snapshot := cloneCart(s.cart)
	s.mu.Unlock()

	e.Resync(ctx, snapshot)
	e.publishCartCleared(ctx, snapshot)

	return snapshot, nil
}

// ChangeIdentity drives the identity-transition state machine:
//
//   - anonymous → newly created identity: the local cart is authoritative;
//     bind and push it to the mirror, no merge.
//   - anonymous → existing identity: merge with the identity's mirror, the
//     merge result overwrites the local cart.
//   - bound → anonymous (logout): the local cart is cleared. Cart state
//     never crosses identities on a shared device.
func (e *Engine) ChangeIdentity(ctx context.Context, sessionID string, newIdentity domain.Identity, isNewIdentity bool) (MergeResult, error) {
	if sessionID == "" {
		return MergeResult{}, apperrors.InvalidInput("session id is required")
	}

	s := e.session(sessionID)
	s.mu.Lock()

	if newIdentity.IsAnonymous() {
		s.cart.Identity = domain.Identity{}
		s.cart.Lines = []domain.CartLine{}
		s.cart.UpdatedAt = time.Now().UTC()
		s.lineLocks = make(map[string]*sync.Mutex)

		snapshot := cloneCart(s.cart)
		s.mu.Unlock()

		e.logger.InfoContext(ctx, "identity unbound, local cart cleared",
			slog.String("session_id", sessionID),
		)

		return MergeResult{Cart: snapshot}, nil
	}

	s.cart.Identity = newIdentity
	s.cart.UpdatedAt = time.Now().UTC()

	if isNewIdentity {
		snapshot := cloneCart(s.cart)
		s.mu.Unlock()

		e.Resync(ctx, snapshot)
		e.publishCartUpdated(ctx, snapshot)

		return MergeResult{Cart: snapshot}, nil
	}

	local := cloneCart(s.cart)
	s.mu.Unlock()

	remote, err := e.fetchMirror(ctx, newIdentity.UserID)
	if err != nil {
		// Fail soft: the local cart stands, the mirror converges on the
		// next successful resync.
		e.logger.ErrorContext(ctx, "mirror fetch failed during identity merge, keeping local cart",
			slog.String("user_id", newIdentity.UserID),
			slog.String("error", err.Error()),
		)
		e.Resync(ctx, local)
		return MergeResult{Cart: local}, nil
	}

	merged, notice := e.mergeWithRemote(ctx, remote, local)

	s.mu.Lock()
	s.cart.Lines = merged
	s.cart.UpdatedAt = time.Now().UTC()
	s.lineLocks = make(map[string]*sync.Mutex)
	snapshot := cloneCart(s.cart)
	s.mu.Unlock()

	e.Resync(ctx, snapshot)
	e.publishCartUpdated(ctx, snapshot)

	e.logger.InfoContext(ctx, "identity merge complete",
		slog.String("session_id", sessionID),
		slog.String("user_id", newIdentity.UserID),
		slog.Int("line_count", len(snapshot.Lines)),
		slog.Bool("adjusted", notice != ""),
	)

	return MergeResult{Cart: snapshot, Notice: notice}, nil
}

// Resync replaces the mirror with the cart's current state. It is an
// idempotent full replace; anonymous carts are skipped. Failures are logged
// and swallowed, the local cart remains authoritative.
func (e *Engine) Resync(ctx context.Context, cart *domain.Cart) {
	if cart.Identity.IsAnonymous() {
		return
	}

	rctx, cancel := context.WithTimeout(ctx, e.remoteTimeout)
	defer cancel()

	if err := e.mirror.Replace(rctx, cart.Identity.UserID, cart); err != nil {
		e.logger.ErrorContext(ctx, "cart mirror resync failed, local cart remains authoritative",
			slog.String("user_id", cart.Identity.UserID),
			slog.String("error", err.Error()),
		)
	}
}

// fetchMirror loads the identity's mirrored cart, bounded by the remote
// timeout. A missing mirror reads as an empty cart.
func (e *Engine) fetchMirror(ctx context.Context, userID string) (*domain.Cart, error) {
	rctx, cancel := context.WithTimeout(ctx, e.remoteTimeout)
	defer cancel()

	remote, err := e.mirror.Get(rctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return &domain.Cart{Lines: []domain.CartLine{}}, nil
		}
		return nil, fmt.Errorf("fetch cart mirror: %w", err)
	}

	return remote, nil
}

// mergeWithRemote folds the pre-transition local lines into the remote
// mirror's lines, re-checking live stock for every line. Remote lines with
// no sellable stock are dropped, the rest clamped; local duplicates sum and
// re-clamp; wholly new local lines are validated independently. All
// adjustments collapse into one consolidated notice.
func (e *Engine) mergeWithRemote(ctx context.Context, remote, local *domain.Cart) ([]domain.CartLine, string) {
	var (
		result    []domain.CartLine
		notes     []string
		available = make(map[string]domain.Availability)
	)

	check := func(variantID string, qty int) (domain.Availability, bool) {
		if a, ok := available[variantID]; ok {
			return a, true
		}
		a, err := e.ledger.CheckAvailability(ctx, variantID, qty)
		if err != nil {
			e.logger.ErrorContext(ctx, "availability check failed during merge, keeping line unclamped",
				slog.String("variant_id", variantID),
				slog.String("error", err.Error()),
			)
			return domain.Availability{}, false
		}
		available[variantID] = a
		return a, true
	}

	for i := range remote.Lines {
		line := remote.Lines[i]

		avail, ok := check(line.VariantID, line.Quantity)
		if !ok {
			result = append(result, line)
			continue
		}
		if !avail.Active || avail.Available == 0 {
			notes = append(notes, fmt.Sprintf("%s is no longer available", line.Title))
			continue
		}
		if line.Quantity > avail.Available {
			notes = append(notes, fmt.Sprintf("%s: only %d available", line.Title, avail.Available))
			line.Quantity = avail.Available
		}
		line.CachedMaxStock = avail.Available
		result = append(result, line)
	}

	for i := range local.Lines {
		line := local.Lines[i]

		idx := -1
		for j := range result {
			if result[j].VariantID == line.VariantID {
				idx = j
				break
			}
		}

		if idx >= 0 {
			combined := result[idx].Quantity + line.Quantity
			if avail, ok := available[line.VariantID]; ok && combined > avail.Available {
				notes = append(notes, fmt.Sprintf("%s: only %d available", result[idx].Title, avail.Available))
				combined = avail.Available
			}
			result[idx].Quantity = combined
			continue
		}

		avail, ok := check(line.VariantID, line.Quantity)
		if !ok {
			result = append(result, line)
			continue
		}
		if !avail.Active || avail.Available == 0 {
			notes = append(notes, fmt.Sprintf("%s is no longer available", line.Title))
			continue
		}
		if line.Quantity > avail.Available {
			notes = append(notes, fmt.Sprintf("%s: only %d available", line.Title, avail.Available))
			line.Quantity = avail.Available
		}
		line.CachedMaxStock = avail.Available
		result = append(result, line)
	}

	if result == nil {
		result = []domain.CartLine{}
	}

	return result, consolidateNotes(notes)
}

// consolidateNotes joins adjustment notes into the single notice surfaced
// to the shopper. One notice per merge, not a per-line flood; repeated
// notes for the same line collapse.
func consolidateNotes(notes []string) string {
	if len(notes) == 0 {
		return ""
	}

	seen := make(map[string]struct{}, len(notes))
	unique := notes[:0]
	for _, n := range notes {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		unique = append(unique, n)
	}

	return "Some items were adjusted: " + strings.Join(unique, "; ")
}

func (e *Engine) publishCartUpdated(ctx context.Context, cart *domain.Cart) {
	if err := e.producer.PublishCartUpdated(ctx, cart); err != nil {
		e.logger.ErrorContext(ctx, "failed to publish cart.updated event",
			slog.String("cart_id", cart.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (e *Engine) publishCartCleared(ctx context.Context, cart *domain.Cart) {
	if err := e.producer.PublishCartCleared(ctx, cart); err != nil {
		e.logger.ErrorContext(ctx, "failed to publish cart.cleared event",
			slog.String("cart_id", cart.ID),
			slog.String("error", err.Error()),
		)
	}
}

func cloneCart(c *domain.Cart) *domain.Cart {
	clone := *c
	clone.Lines = make([]domain.CartLine, len(c.Lines))
	copy(clone.Lines, c.Lines)
	return &clone
}
