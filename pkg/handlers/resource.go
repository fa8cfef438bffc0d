package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/desa-digital/portal-engine/pkg/adapters/datasource"
	"github.com/desa-digital/portal-engine/pkg/apperrors"
	"github.com/desa-digital/portal-engine/pkg/logging"
	sqlguard "github.com/desa-digital/portal-engine/pkg/sql"
)

// Querier runs statements against a domain. *database.Registry implements it.
type Querier interface {
	Query(ctx context.Context, domain, statement string, params ...any) (*datasource.QueryResult, error)
}

// FieldKind tells how a JSON value is validated and bound.
type FieldKind int

const (
	// Text is a short string column (VARCHAR(255)), screened for injection.
	Text FieldKind = iota
	// LongText is free-form content.
	LongText
	Int
	Float
	Time
	// Password is accepted as "password" and stored as a bcrypt hash in password_hash.
	Password
)

const maxTextLength = 255

// Field is one writable column of a resource.
type Field struct {
	Name       string
	Kind       FieldKind
	Required   bool // on create
	Searchable bool // matched by ?q=
}

func (f Field) column() string {
	if f.Kind == Password {
		return "password_hash"
	}
	return f.Name
}

// Guard vets an update or delete before it runs. input is nil for deletes.
type Guard func(ctx context.Context, db Querier, domain string, id int64, input map[string]any) error

// Resource maps a REST collection onto a table.
type Resource struct {
	Path    string // URL segment under /api/
	Table   string
	Fields  []Field
	OrderBy string
	Guard   Guard
}

// Singular returns a human name for one row, e.g. "Tourism spot".
func (r Resource) Singular() string {
	name := strings.ReplaceAll(inflection.Singular(r.Table), "_", " ")
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// selectList lists every readable column. Password hashes are never returned.
func (r Resource) selectList() string {
	cols := []string{"id"}
	for _, f := range r.Fields {
		if f.Kind != Password {
			cols = append(cols, f.Name)
		}
	}
	cols = append(cols, "created_at", "updated_at")
	return strings.Join(cols, ", ")
}

// validationError is a client mistake in the request body or query.
type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }

func invalid(format string, args ...any) error {
	return &validationError{msg: fmt.Sprintf(format, args...)}
}

// ResourceHandler serves CRUD for one Resource of one domain.
type ResourceHandler struct {
	res    Resource
	domain string
	db     Querier
	hash   func(string) (string, error)
	now    func() time.Time
	logger *zap.Logger
}

// NewResourceHandler creates a handler for res. hash turns plaintext passwords
// into stored hashes.
func NewResourceHandler(domain string, res Resource, db Querier, hash func(string) (string, error), logger *zap.Logger) *ResourceHandler {
	if res.OrderBy == "" {
		res.OrderBy = "id DESC"
	}
	return &ResourceHandler{
		res:    res,
		domain: domain,
		db:     db,
		hash:   hash,
		now:    time.Now,
		logger: logger.With(zap.String("resource", res.Path)),
	}
}

// RegisterRoutes registers the collection and item routes on the given mux.
func (h *ResourceHandler) RegisterRoutes(mux *http.ServeMux) {
	base := "/api/" + h.res.Path
	mux.HandleFunc("GET "+base, h.List)
	mux.HandleFunc("POST "+base, h.Create)
	mux.HandleFunc("GET "+base+"/{id}", h.Get)
	mux.HandleFunc("PUT "+base+"/{id}", h.Update)
	mux.HandleFunc("DELETE "+base+"/{id}", h.Delete)
}

// List handles GET /api/<res>. ?q= matches any searchable column, case-insensitively.
func (h *ResourceHandler) List(w http.ResponseWriter, r *http.Request) {
	stmt := fmt.Sprintf("SELECT %s FROM %s", h.res.selectList(), h.res.Table)
	var params []any

	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		if f := sqlguard.Check("q", q); f != nil {
			h.writeError(w, r, f, "")
			return
		}
		var conds []string
		pattern := "%" + strings.ToLower(q) + "%"
		for _, f := range h.res.Fields {
			if f.Searchable {
				conds = append(conds, fmt.Sprintf("LOWER(%s) LIKE ?", f.Name))
				params = append(params, pattern)
			}
		}
		if len(conds) > 0 {
			stmt += " WHERE " + strings.Join(conds, " OR ")
		}
	}
	stmt += " ORDER BY " + h.res.OrderBy

	result, err := h.db.Query(r.Context(), h.domain, stmt, params...)
	if err != nil {
		h.writeError(w, r, err, stmt)
		return
	}
	if err := WriteList(w, result.Rows); err != nil {
		h.logger.Error("Failed to encode list response", zap.Error(err))
	}
}

// Get handles GET /api/<res>/{id}.
func (h *ResourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}
	row, err := h.fetch(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}
	if err := WriteData(w, http.StatusOK, row); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// Create handles POST /api/<res>.
func (h *ResourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	input, err := decodeBody(w, r)
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}
	cols, vals, err := h.bind(input, true)
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		h.res.Table, strings.Join(cols, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "))
	result, err := h.db.Query(r.Context(), h.domain, stmt, vals...)
	if err != nil {
		h.writeError(w, r, err, stmt)
		return
	}
	if result.InsertID == nil {
		h.writeError(w, r, fmt.Errorf("insert into %s returned no id", h.res.Table), stmt)
		return
	}

	row, err := h.fetch(r.Context(), *result.InsertID)
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}
	h.logger.Info("Row created", zap.String("domain", h.domain), zap.Int64("id", *result.InsertID))
	if err := WriteData(w, http.StatusCreated, row); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// Update handles PUT /api/<res>/{id}. Only the fields present in the body change.
func (h *ResourceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}
	input, err := decodeBody(w, r)
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}
	cols, vals, err := h.bind(input, false)
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}
	if len(cols) == 0 {
		h.writeError(w, r, invalid("no updatable fields in request body"), "")
		return
	}
	if h.res.Guard != nil {
		if err := h.res.Guard(r.Context(), h.db, h.domain, id, input); err != nil {
			h.writeError(w, r, err, "")
			return
		}
	}

	sets := make([]string, 0, len(cols)+1)
	for _, c := range cols {
		sets = append(sets, c+" = ?")
	}
	sets = append(sets, "updated_at = ?")
	vals = append(vals, h.now().UTC(), id)

	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", h.res.Table, strings.Join(sets, ", "))
	result, err := h.db.Query(r.Context(), h.domain, stmt, vals...)
	if err != nil {
		h.writeError(w, r, err, stmt)
		return
	}
	if result.RowCount == 0 {
		h.writeError(w, r, apperrors.ErrNotFound, "")
		return
	}

	row, err := h.fetch(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}
	if err := WriteData(w, http.StatusOK, row); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// Delete handles DELETE /api/<res>/{id}.
func (h *ResourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}
	if h.res.Guard != nil {
		if err := h.res.Guard(r.Context(), h.db, h.domain, id, nil); err != nil {
			h.writeError(w, r, err, "")
			return
		}
	}

	stmt := fmt.Sprintf("DELETE FROM %s WHERE id = ?", h.res.Table)
	result, err := h.db.Query(r.Context(), h.domain, stmt, id)
	if err != nil {
		h.writeError(w, r, err, stmt)
		return
	}
	if result.RowCount == 0 {
		h.writeError(w, r, apperrors.ErrNotFound, "")
		return
	}

	h.logger.Info("Row deleted", zap.String("domain", h.domain), zap.Int64("id", id))
	if err := WriteJSON(w, http.StatusOK, Envelope{Success: true, Message: h.res.Singular() + " deleted"}); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *ResourceHandler) fetch(ctx context.Context, id int64) (map[string]any, error) {
	stmt := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", h.res.selectList(), h.res.Table)
	result, err := h.db.Query(ctx, h.domain, stmt, id)
	if err != nil {
		return nil, err
	}
	if len(result.Rows) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return result.Rows[0], nil
}

func decodeBody(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.UseNumber()
	var input map[string]any
	if err := dec.Decode(&input); err != nil {
		return nil, invalid("request body must be a JSON object")
	}
	if input == nil {
		return nil, invalid("request body must be a JSON object")
	}
	return input, nil
}

// bind validates input against the resource's fields and returns the columns
// and values to write, in field order. Unknown keys are ignored.
func (h *ResourceHandler) bind(input map[string]any, create bool) ([]string, []any, error) {
	var cols []string
	var vals []any
	screened := make(map[string]any)

	for _, f := range h.res.Fields {
		raw, present := input[f.Name]
		if !present || raw == nil {
			if create && f.Required {
				return nil, nil, invalid("%s is required", f.Name)
			}
			if !present {
				continue
			}
		}

		v, err := convert(f, raw)
		if err != nil {
			return nil, nil, err
		}
		if f.Required && (v == nil || v == "") {
			return nil, nil, invalid("%s is required", f.Name)
		}
		if f.Kind == Text {
			screened[f.Name] = v
		}
		if f.Kind == Password && v != nil {
			if v, err = h.hash(v.(string)); err != nil {
				return nil, nil, fmt.Errorf("hash password: %w", err)
			}
		}
		cols = append(cols, f.column())
		vals = append(vals, v)
	}

	if finding := sqlguard.Screen(screened); finding != nil {
		return nil, nil, finding
	}
	return cols, vals, nil
}

var timeLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04:05", "2006-01-02"}

func convert(f Field, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	switch f.Kind {
	case Text, LongText, Password:
		s, ok := raw.(string)
		if !ok {
			return nil, invalid("%s must be a string", f.Name)
		}
		s = strings.TrimSpace(s)
		if f.Kind == Text && utf8.RuneCountInString(s) > maxTextLength {
			return nil, invalid("%s must be at most %d characters", f.Name, maxTextLength)
		}
		return s, nil
	case Int:
		switch n := raw.(type) {
		case json.Number:
			i, err := n.Int64()
			if err != nil {
				return nil, invalid("%s must be an integer", f.Name)
			}
			return i, nil
		case bool:
			if n {
				return int64(1), nil
			}
			return int64(0), nil
		}
		return nil, invalid("%s must be an integer", f.Name)
	case Float:
		n, ok := raw.(json.Number)
		if !ok {
			return nil, invalid("%s must be a number", f.Name)
		}
		v, err := n.Float64()
		if err != nil {
			return nil, invalid("%s must be a number", f.Name)
		}
		return v, nil
	case Time:
		s, ok := raw.(string)
		if !ok {
			return nil, invalid("%s must be a date or timestamp string", f.Name)
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), nil
			}
		}
		return nil, invalid("%s must be a date or timestamp string", f.Name)
	}
	return nil, invalid("%s has an unsupported type", f.Name)
}

// writeError maps err onto a status code. stmt, when set, is logged sanitized;
// parameter values never are.
func (h *ResourceHandler) writeError(w http.ResponseWriter, r *http.Request, err error, stmt string) {
	status, msg := http.StatusInternalServerError, "internal server error"

	var verr *validationError
	var finding *sqlguard.Finding
	switch {
	case errors.As(err, &verr):
		status, msg = http.StatusBadRequest, verr.msg
	case errors.As(err, &finding):
		status, msg = http.StatusBadRequest, fmt.Sprintf("%s contains disallowed content", finding.Field)
		h.logger.Warn("Rejected suspicious input",
			zap.String("domain", h.domain),
			zap.String("field", finding.Field),
			zap.String("fingerprint", finding.Fingerprint))
	case errors.Is(err, apperrors.ErrNotFound):
		status, msg = http.StatusNotFound, h.res.Singular()+" not found"
	case errors.Is(err, apperrors.ErrLastAdmin):
		status, msg = http.StatusForbidden, "cannot delete or demote the last admin user"
	default:
		if kind, ok := apperrors.QueryErrorKindOf(err); ok {
			switch kind {
			case apperrors.QueryConflict:
				status, msg = http.StatusConflict, h.res.Singular()+" already exists"
			case apperrors.QueryBadRequest:
				status, msg = http.StatusBadRequest, "invalid "+strings.ToLower(h.res.Singular())+" data"
			}
		}
	}

	if status >= http.StatusInternalServerError || stmt != "" {
		fields := []zap.Field{
			zap.String("domain", h.domain),
			zap.String("method", r.Method),
			zap.Int("status", status),
			zap.String("error", logging.SanitizeError(err)),
		}
		if stmt != "" {
			fields = append(fields, zap.String("statement", logging.SanitizeQuery(stmt)))
		}
		if status >= http.StatusInternalServerError {
			h.logger.Error("Request failed", fields...)
		} else {
			h.logger.Debug("Request rejected by database", fields...)
		}
	}

	if err := ErrorResponse(w, status, msg); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
