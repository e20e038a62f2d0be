package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"engcontrol/api/internal/access"
	"engcontrol/api/internal/auth"
	"engcontrol/api/internal/authpw"
	"engcontrol/api/internal/catalog"
	"engcontrol/api/internal/config"
	"engcontrol/api/internal/export"
	"engcontrol/api/internal/photo"
	"engcontrol/api/internal/search"
	"engcontrol/api/internal/store"
	"engcontrol/api/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	Username     string
	UserName     string
	Sector       string
	IsDeveloper  bool
	Avatar       string
	JTI          string
	ExpiresAt    time.Time
}

func (s Session) Actor() access.Actor {
	return access.Actor{
		ID:          s.UserID,
		Name:        s.UserName,
		Sector:      s.Sector,
		IsDeveloper: s.IsDeveloper,
	}
}

// EventInput is the full user-editable field set of an event. It is used for
// both create and update; edit notifications are derived by comparing it
// against the pre-edit snapshot.
type EventInput struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Line             string   `json:"line"`
	Shift            string   `json:"shift"`
	Category         string   `json:"category"`
	Solution         *string  `json:"solution"`
	Impact           *string  `json:"impact"`
	Downtime         *int     `json:"downtime"`
	ReleaseTime      *string  `json:"releaseTime"`
	EquipmentSubtype *string  `json:"equipmentSubtype"`
	Photos           []string `json:"photos"`
}

// DayStats is the per-day summary computed over the actor's visible events.
type DayStats struct {
	Date     string         `json:"date"`
	Total    int            `json:"total"`
	Failures int            `json:"failures"`
	PerShift map[string]int `json:"perShift"`
}

type dataStore interface {
	CreateUser(context.Context, store.User) error
	GetUserByUsername(context.Context, string) (store.User, error)
	GetUserByID(context.Context, string) (store.User, error)
	ListUsers(context.Context) ([]store.User, error)
	UpdateUserSector(context.Context, string, string) error
	DeleteUser(context.Context, string) error
	RevokeAccessToken(context.Context, string, time.Time) error
	IsAccessTokenRevoked(context.Context, string) (bool, error)
	ListEvents(context.Context, string, bool) ([]store.Event, error)
	GetEvent(context.Context, string) (store.Event, error)
	InsertEvent(context.Context, store.Event) error
	UpdateEvent(context.Context, store.Event) error
	DeleteEventComments(context.Context, string) error
	DeleteEvent(context.Context, string) error
	InsertComment(context.Context, store.Comment) error
	InsertNotification(context.Context, store.Notification) error
	ListNotifications(context.Context, string, bool, int) ([]store.Notification, error)
	ListAuditLog(context.Context, int) ([]store.Notification, error)
	MarkAllNotificationsRead(context.Context, string, bool) error
	ClearAllNotifications(context.Context) error
	ClearUserNotifications(context.Context, string) error
	Ping(ctx context.Context) error
}

// refreshSessionStore holds refresh tokens. Redis-backed in production with
// the Postgres store as fallback; both carry the user snapshot.
type refreshSessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash string, user store.User, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

const notificationLimit = 50

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions refreshSessionStore
	pw       *authpw.Service
	search   *search.Service
	export   *export.Service
	photos   *photo.Store

	mu      sync.Mutex
	mirrors map[string]*mirrorState
}

func New(cfg config.Config, dataStore *store.PostgresStore, searchService *search.Service, exportService *export.Service, photoStore *photo.Store) *Service {
	return &Service{
		cfg:      cfg,
		store:    dataStore,
		sessions: dataStore,
		pw:       authpw.NewService(dataStore),
		search:   searchService,
		export:   exportService,
		photos:   photoStore,
		mirrors:  make(map[string]*mirrorState),
	}
}

// NewWithSessionStore swaps the refresh token backend, typically for Redis.
func NewWithSessionStore(cfg config.Config, dataStore *store.PostgresStore, sessions refreshSessionStore, searchService *search.Service, exportService *export.Service, photoStore *photo.Store) *Service {
	s := New(cfg, dataStore, searchService, exportService, photoStore)
	s.sessions = sessions
	return s
}

func (s *Service) mirror(actorID string) *mirrorState {
	m, ok := s.mirrors[actorID]
	if !ok {
		m = newMirrorState()
		s.mirrors[actorID] = m
	}
	return m
}

// ---- auth & sessions ----

func (s *Service) Register(ctx context.Context, req authpw.RegisterRequest) (Session, error) {
	if !catalog.ValidSector(strings.TrimSpace(req.Sector)) {
		return Session{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown sector", map[string]any{"sectors": catalog.Sectors()})
	}
	user, err := s.pw.Register(ctx, req)
	if err != nil {
		return Session{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Login(ctx context.Context, username, password string) (Session, error) {
	user, err := s.pw.SignIn(ctx, username, password)
	if err != nil {
		return Session{}, domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid username or password", nil)
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	user, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, domainError(http.StatusUnauthorized, "INVALID_REFRESH", "refresh token is invalid or expired", nil)
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.TokenSecret), auth.Claims{
		Sub:    user.ID,
		Name:   user.DisplayName,
		Sector: user.Sector,
		Dev:    user.IsDeveloper,
		JTI:    jti,
		Exp:    expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		Username:     user.Username,
		UserName:     user.DisplayName,
		Sector:       user.Sector,
		IsDeveloper:  user.IsDeveloper,
		Avatar:       user.Avatar,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.TokenSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.store.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:       token,
		UserID:      user.ID,
		Username:    user.Username,
		UserName:    user.DisplayName,
		Sector:      user.Sector,
		IsDeveloper: user.IsDeveloper,
		Avatar:      user.Avatar,
		JTI:         claims.JTI,
		ExpiresAt:   time.Unix(claims.Exp, 0),
	}, nil
}

// Logout revokes the session and drops the actor's mirror.
func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		_ = s.store.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt)
	}
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	s.mu.Lock()
	delete(s.mirrors, session.UserID)
	s.mu.Unlock()
	return nil
}

// ---- synchronization ----

// LoadAll fetches the actor's visible events and notifications concurrently
// and replaces the mirror with the result. Either fetch failing fails the
// whole load, and in that case the mirror keeps its previous contents.
func (s *Service) LoadAll(ctx context.Context, actor access.Actor) ([]store.Event, []store.Notification, error) {
	var (
		events        []store.Event
		notifications []store.Notification
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		events, err = s.store.ListEvents(gctx, actor.Sector, actor.IsDeveloper)
		return err
	})
	g.Go(func() error {
		var err error
		notifications, err = s.store.ListNotifications(gctx, actor.ID, actor.IsDeveloper, notificationLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("load state: %w", err)
	}

	s.mu.Lock()
	m := s.mirror(actor.ID)
	m.replace(events, notifications)
	events = m.snapshotEvents()
	notifications = m.snapshotNotifications()
	s.mu.Unlock()
	return events, notifications, nil
}

// Events returns the actor's mirror, loading it on first use.
func (s *Service) Events(ctx context.Context, actor access.Actor) ([]store.Event, error) {
	s.mu.Lock()
	m := s.mirror(actor.ID)
	if m.loaded {
		events := m.snapshotEvents()
		s.mu.Unlock()
		return events, nil
	}
	s.mu.Unlock()

	events, _, err := s.LoadAll(ctx, actor)
	return events, err
}

func (s *Service) Notifications(ctx context.Context, actor access.Actor) ([]store.Notification, error) {
	s.mu.Lock()
	m := s.mirror(actor.ID)
	if m.loaded {
		notifications := m.snapshotNotifications()
		s.mu.Unlock()
		return notifications, nil
	}
	s.mu.Unlock()

	_, notifications, err := s.LoadAll(ctx, actor)
	return notifications, err
}

// SelectEvent sets the actor's "currently open" pointer. The event must be in
// the mirror.
func (s *Service) SelectEvent(actor access.Actor, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.mirror(actor.ID)
	if m.findEvent(eventID) < 0 {
		return domainError(http.StatusNotFound, "EVENT_NOT_FOUND", "event is not in the loaded state", nil)
	}
	m.selectedEventID = eventID
	return nil
}

func (s *Service) SelectedEvent(actor access.Actor) (store.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.mirror(actor.ID)
	if m.selectedEventID == "" {
		return store.Event{}, false
	}
	i := m.findEvent(m.selectedEventID)
	if i < 0 {
		return store.Event{}, false
	}
	return m.events[i], true
}

// notify inserts a notification as a best-effort side effect. The triggering
// write already succeeded, so a failed insert is logged instead of failing
// the operation; failing it would make clients retry an already-applied
// write.
func (s *Service) notify(ctx context.Context, n store.Notification) bool {
	if err := s.store.InsertNotification(ctx, n); err != nil {
		log.Printf(`{"level":"warn","msg":"notification insert failed","notification":%q,"error":%q}`, n.Title, err.Error())
		return false
	}
	return true
}

func (s *Service) validateEventInput(in EventInput) (catalog.Category, catalog.Shift, *DomainError) {
	if strings.TrimSpace(in.Title) == "" {
		return "", "", domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required", nil)
	}
	if strings.TrimSpace(in.Description) == "" {
		return "", "", domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "description is required", nil)
	}
	if strings.TrimSpace(in.Line) == "" {
		return "", "", domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "line is required", nil)
	}
	shift, err := catalog.ParseShift(in.Shift)
	if err != nil {
		return "", "", domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), map[string]any{"shifts": catalog.Shifts()})
	}
	category, err := catalog.ParseCategory(in.Category)
	if err != nil {
		return "", "", domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), map[string]any{"categories": catalog.Categories()})
	}
	if category.RequiresEquipmentSubtype() {
		if in.EquipmentSubtype == nil || strings.TrimSpace(*in.EquipmentSubtype) == "" {
			return "", "", domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "equipmentSubtype is required for technical categories", nil)
		}
	}
	if in.Downtime != nil && *in.Downtime < 0 {
		return "", "", domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "downtime must not be negative", nil)
	}
	return category, shift, nil
}

// CreateEvent writes the event remotely and, only after that succeeds,
// prepends it to the actor's mirror and emits the broadcast notification.
func (s *Service) CreateEvent(ctx context.Context, actor access.Actor, in EventInput) (store.Event, error) {
	if _, _, derr := s.validateEventInput(in); derr != nil {
		return store.Event{}, derr
	}

	now := util.NowMillis()
	event := store.Event{
		ID:               util.NewID("evt"),
		Date:             util.DayStamp(time.Now()),
		Shift:            in.Shift,
		Line:             strings.TrimSpace(in.Line),
		Category:         in.Category,
		Title:            strings.TrimSpace(in.Title),
		Description:      in.Description,
		Solution:         in.Solution,
		Impact:           in.Impact,
		Downtime:         in.Downtime,
		ReleaseTime:      in.ReleaseTime,
		EquipmentSubtype: in.EquipmentSubtype,
		Photos:           in.Photos,
		AuthorID:         actor.ID,
		AuthorName:       actor.Name,
		Sector:           actor.Sector,
		CreatedAt:        now,
		Comments:         []store.Comment{},
	}
	if event.Photos == nil {
		event.Photos = []string{}
	}
	event.Photos = s.photos.Offload(ctx, event.ID, event.Photos)

	if err := s.store.InsertEvent(ctx, event); err != nil {
		return store.Event{}, err
	}

	s.mu.Lock()
	s.mirror(actor.ID).prependEvent(event)
	s.mu.Unlock()

	notification := store.Notification{
		ID:        util.NewID("ntf"),
		Title:     "Nova " + event.Category,
		Message:   fmt.Sprintf("%s registrou em %s", actor.Name, event.Line),
		CreatedAt: now,
		Category:  event.Category,
		EventID:   event.ID,
	}
	// Regular actors pick the broadcast up on their next scoped fetch.
	if s.notify(ctx, notification) && actor.IsDeveloper {
		s.mu.Lock()
		s.mirror(actor.ID).prependNotification(notification)
		s.mu.Unlock()
	}

	if s.search != nil {
		s.search.IndexEvent(search.Record(event))
	}
	return event, nil
}

// UpdateEvent merges the full editable field set into an already-loaded
// event. If anything actually changed, an audit notification names the
// changed fields.
func (s *Service) UpdateEvent(ctx context.Context, actor access.Actor, eventID string, in EventInput) (store.Event, []string, error) {
	s.mu.Lock()
	m := s.mirror(actor.ID)
	i := m.findEvent(eventID)
	if !m.loaded || i < 0 {
		s.mu.Unlock()
		return store.Event{}, nil, domainError(http.StatusConflict, "EVENT_NOT_LOADED", "event must be loaded before editing", nil)
	}
	before := m.events[i]
	s.mu.Unlock()

	if !access.CanManageEvent(actor, before) {
		return store.Event{}, nil, domainError(http.StatusForbidden, "FORBIDDEN", "only the author or a developer can edit this event", nil)
	}
	if _, _, derr := s.validateEventInput(in); derr != nil {
		return store.Event{}, nil, derr
	}

	changed := changedFieldLabels(before, in)

	updated := before
	updated.Title = strings.TrimSpace(in.Title)
	updated.Description = in.Description
	updated.Line = strings.TrimSpace(in.Line)
	updated.Shift = in.Shift
	updated.Category = in.Category
	updated.Solution = in.Solution
	updated.Impact = in.Impact
	updated.Downtime = in.Downtime
	updated.ReleaseTime = in.ReleaseTime
	updated.EquipmentSubtype = in.EquipmentSubtype
	updated.Photos = in.Photos
	if updated.Photos == nil {
		updated.Photos = []string{}
	}
	updated.Photos = s.photos.Offload(ctx, updated.ID, updated.Photos)

	now := util.NowMillis()
	name := actor.Name
	updated.LastEditedBy = &name
	updated.LastEditedAt = &now

	if err := s.store.UpdateEvent(ctx, updated); err != nil {
		if store.IsNotFound(err) {
			return store.Event{}, nil, domainError(http.StatusNotFound, "EVENT_NOT_FOUND", "event no longer exists", nil)
		}
		return store.Event{}, nil, err
	}

	s.mu.Lock()
	s.mirror(actor.ID).mergeEvent(updated)
	s.mu.Unlock()

	if len(changed) > 0 {
		notification := store.Notification{
			ID:        util.NewID("ntf"),
			Title:     "Evento editado",
			Message:   fmt.Sprintf("%s editou %q. Campos: %s.", actor.Name, updated.Title, strings.Join(changed, ", ")),
			CreatedAt: now,
			Category:  updated.Category,
			Audience:  access.AudienceDev,
			EventID:   updated.ID,
		}
		if s.notify(ctx, notification) && actor.IsDeveloper {
			s.mu.Lock()
			s.mirror(actor.ID).prependNotification(notification)
			s.mu.Unlock()
		}
	}

	if s.search != nil {
		s.search.IndexEvent(search.Record(updated))
	}
	return updated, changed, nil
}

// DeleteEvent removes the event and its comments. Comments go first; if the
// event delete then fails the remote is left partially inconsistent, which is
// accepted rather than compensated.
func (s *Service) DeleteEvent(ctx context.Context, actor access.Actor, eventID string, confirmed bool) error {
	event, err := s.eventForWrite(ctx, actor, eventID)
	if err != nil {
		return err
	}
	if !access.CanManageEvent(actor, event) {
		return domainError(http.StatusForbidden, "FORBIDDEN", "only the author or a developer can delete this event", nil)
	}
	if !confirmed {
		return domainError(http.StatusPreconditionRequired, "CONFIRMATION_REQUIRED", "event deletion must be confirmed", nil)
	}

	if err := s.store.DeleteEventComments(ctx, eventID); err != nil {
		return err
	}
	if err := s.store.DeleteEvent(ctx, eventID); err != nil {
		if store.IsNotFound(err) {
			return domainError(http.StatusNotFound, "EVENT_NOT_FOUND", "event no longer exists", nil)
		}
		return err
	}

	s.mu.Lock()
	s.mirror(actor.ID).removeEvent(eventID)
	s.mu.Unlock()

	notification := store.Notification{
		ID:        util.NewID("ntf"),
		Title:     "Evento excluido",
		Message:   fmt.Sprintf("%s excluiu %q (%s, %s).", actor.Name, event.Title, event.Category, event.Shift),
		CreatedAt: util.NowMillis(),
		Category:  event.Category,
		Audience:  access.AudienceDev,
		EventID:   event.ID,
	}
	if s.notify(ctx, notification) && actor.IsDeveloper {
		s.mu.Lock()
		s.mirror(actor.ID).prependNotification(notification)
		s.mu.Unlock()
	}

	if s.search != nil {
		s.search.DeleteEvent(eventID)
	}
	return nil
}

// eventForWrite resolves the event from the mirror when loaded, falling back
// to the store, and hides events outside the actor's visibility.
func (s *Service) eventForWrite(ctx context.Context, actor access.Actor, eventID string) (store.Event, error) {
	s.mu.Lock()
	m := s.mirror(actor.ID)
	if i := m.findEvent(eventID); i >= 0 {
		event := m.events[i]
		s.mu.Unlock()
		return event, nil
	}
	s.mu.Unlock()

	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		if store.IsNotFound(err) {
			return store.Event{}, domainError(http.StatusNotFound, "EVENT_NOT_FOUND", "event not found", nil)
		}
		return store.Event{}, err
	}
	if !access.EventVisible(actor, event) {
		return store.Event{}, domainError(http.StatusNotFound, "EVENT_NOT_FOUND", "event not found", nil)
	}
	return event, nil
}

// AddComment appends a comment to the event and alerts the event author when
// someone else commented. The targeted notification is for the recipient and
// never shows up in the commenter's own mirror.
func (s *Service) AddComment(ctx context.Context, actor access.Actor, eventID, text string) (store.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return store.Comment{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "text is required", nil)
	}

	event, err := s.eventForWrite(ctx, actor, eventID)
	if err != nil {
		return store.Comment{}, err
	}

	comment := store.Comment{
		ID:         util.NewID("cmt"),
		EventID:    eventID,
		AuthorID:   actor.ID,
		AuthorName: actor.Name,
		Text:       text,
		CreatedAt:  util.NowMillis(),
	}
	if err := s.store.InsertComment(ctx, comment); err != nil {
		return store.Comment{}, err
	}

	s.mu.Lock()
	s.mirror(actor.ID).appendComment(comment)
	s.mu.Unlock()

	if event.AuthorID != actor.ID {
		targetID := event.AuthorID
		s.notify(ctx, store.Notification{
			ID:           util.NewID("ntf"),
			Title:        "Novo comentario",
			Message:      fmt.Sprintf("%s comentou no seu registro: %s", actor.Name, event.Title),
			CreatedAt:    comment.CreatedAt,
			Category:     event.Category,
			TargetUserID: &targetID,
			EventID:      eventID,
		})
	}
	return comment, nil
}

// MarkAllRead flips every unread notification in the actor's remote scope,
// then mirrors the flip locally.
func (s *Service) MarkAllRead(ctx context.Context, actor access.Actor) error {
	if err := s.store.MarkAllNotificationsRead(ctx, actor.ID, actor.IsDeveloper); err != nil {
		return err
	}
	s.mu.Lock()
	s.mirror(actor.ID).markAllRead()
	s.mu.Unlock()
	return nil
}

// ClearNotifications empties the history. Developers clear everything;
// regular actors clear only entries targeted at them, with the same predicate
// applied remotely and locally, so broadcasts survive on both sides.
func (s *Service) ClearNotifications(ctx context.Context, actor access.Actor, confirmed bool) error {
	if !confirmed {
		return domainError(http.StatusPreconditionRequired, "CONFIRMATION_REQUIRED", "clearing notifications must be confirmed", nil)
	}

	if actor.IsDeveloper {
		if err := s.store.ClearAllNotifications(ctx); err != nil {
			return err
		}
		s.mu.Lock()
		s.mirror(actor.ID).clearNotifications(nil)
		s.mu.Unlock()
		return nil
	}

	if err := s.store.ClearUserNotifications(ctx, actor.ID); err != nil {
		return err
	}
	s.mu.Lock()
	s.mirror(actor.ID).clearNotifications(func(n store.Notification) bool {
		return !access.ClearableByActor(actor, n)
	})
	s.mu.Unlock()
	return nil
}

// ---- reads beyond the mirror ----

// AuditLog is the developer-only view over dev-audience notifications.
func (s *Service) AuditLog(ctx context.Context, actor access.Actor) ([]store.Notification, error) {
	if !access.CanAdminister(actor) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "developer access required", nil)
	}
	return s.store.ListAuditLog(ctx, notificationLimit)
}

// Stats summarizes one calendar day of the actor's visible events.
func (s *Service) Stats(ctx context.Context, actor access.Actor, date string) (DayStats, error) {
	events, err := s.store.ListEvents(ctx, actor.Sector, actor.IsDeveloper)
	if err != nil {
		return DayStats{}, err
	}
	stats := DayStats{Date: date, PerShift: map[string]int{}}
	for _, shift := range catalog.Shifts() {
		stats.PerShift[string(shift)] = 0
	}
	for _, e := range events {
		if e.Date != date {
			continue
		}
		stats.Total++
		if e.Category == string(catalog.CategoryFalha) {
			stats.Failures++
		}
		stats.PerShift[e.Shift]++
	}
	return stats, nil
}

// SearchEvents runs a scoped full-text search.
func (s *Service) SearchEvents(ctx context.Context, actor access.Actor, text string, limit, offset int) (search.Response, error) {
	if s.search == nil {
		return search.Response{}, domainError(http.StatusServiceUnavailable, "SEARCH_UNAVAILABLE", "search is not configured", nil)
	}
	if strings.TrimSpace(text) == "" {
		return search.Response{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "query is required", nil)
	}
	return s.search.Search(ctx, search.Query{
		Text:       text,
		Sector:     actor.Sector,
		IncludeAll: actor.IsDeveloper,
		Limit:      limit,
		Offset:     offset,
	}), nil
}

// ExportHandover renders the actor's visible events for one day to PDF.
func (s *Service) ExportHandover(ctx context.Context, actor access.Actor, date, shift string) (*export.Result, error) {
	if s.export == nil {
		return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "export is not configured", nil)
	}
	if date == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "date is required", nil)
	}
	if shift != "" {
		if _, err := catalog.ParseShift(shift); err != nil {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
		}
	}
	return s.export.Handover(ctx, export.Request{
		Date:       date,
		Shift:      shift,
		Sector:     actor.Sector,
		IncludeAll: actor.IsDeveloper,
		ActorName:  actor.Name,
	})
}

// ---- administration ----

func (s *Service) ListUsers(ctx context.Context, actor access.Actor) ([]store.User, error) {
	if !access.CanAdminister(actor) {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "developer access required", nil)
	}
	return s.store.ListUsers(ctx)
}

func (s *Service) UpdateUserSector(ctx context.Context, actor access.Actor, userID, sector string) error {
	if !access.CanAdminister(actor) {
		return domainError(http.StatusForbidden, "FORBIDDEN", "developer access required", nil)
	}
	if !catalog.ValidSector(sector) {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown sector", map[string]any{"sectors": catalog.Sectors()})
	}
	if err := s.store.UpdateUserSector(ctx, userID, sector); err != nil {
		if store.IsNotFound(err) {
			return domainError(http.StatusNotFound, "USER_NOT_FOUND", "user not found", nil)
		}
		return err
	}
	return nil
}

func (s *Service) DeleteUser(ctx context.Context, actor access.Actor, userID string, confirmed bool) error {
	if !access.CanAdminister(actor) {
		return domainError(http.StatusForbidden, "FORBIDDEN", "developer access required", nil)
	}
	if userID == actor.ID {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "cannot delete your own account", nil)
	}
	if !confirmed {
		return domainError(http.StatusPreconditionRequired, "CONFIRMATION_REQUIRED", "user deletion must be confirmed", nil)
	}
	if err := s.store.DeleteUser(ctx, userID); err != nil {
		if store.IsNotFound(err) {
			return domainError(http.StatusNotFound, "USER_NOT_FOUND", "user not found", nil)
		}
		return err
	}
	s.mu.Lock()
	delete(s.mirrors, userID)
	s.mu.Unlock()
	return nil
}

func (s *Service) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Bootstrap runs one-time startup work. It seeds the search index from the
// database so search works immediately after a fresh Meilisearch volume.
func (s *Service) Bootstrap(ctx context.Context) error {
	if s.search != nil {
		s.search.ReindexAll(ctx)
	}
	return nil
}
