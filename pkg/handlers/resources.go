package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/desa-digital/portal-engine/pkg/adapters/datasource"
	"github.com/desa-digital/portal-engine/pkg/apperrors"
	"github.com/desa-digital/portal-engine/pkg/config"
	"github.com/desa-digital/portal-engine/pkg/schema"
)

var usersResource = Resource{
	Path:  "users",
	Table: "users",
	Fields: []Field{
		{Name: "username", Kind: Text, Required: true, Searchable: true},
		{Name: "password", Kind: Password, Required: true},
		{Name: "full_name", Kind: Text, Searchable: true},
		{Name: "role", Kind: Text},
	},
	OrderBy: "username",
	Guard:   guardLastAdmin,
}

var newsResource = Resource{
	Path:  "news",
	Table: "news",
	Fields: []Field{
		{Name: "title", Kind: Text, Required: true, Searchable: true},
		{Name: "slug", Kind: Text},
		{Name: "content", Kind: LongText, Searchable: true},
		{Name: "author", Kind: Text, Searchable: true},
		{Name: "image_url", Kind: Text},
		{Name: "published_at", Kind: Time},
	},
}

var announcementsResource = Resource{
	Path:  "announcements",
	Table: "announcements",
	Fields: []Field{
		{Name: "title", Kind: Text, Required: true, Searchable: true},
		{Name: "content", Kind: LongText, Searchable: true},
		{Name: "starts_at", Kind: Time},
		{Name: "ends_at", Kind: Time},
	},
}

var runningTextsResource = Resource{
	Path:  "running-texts",
	Table: "running_texts",
	Fields: []Field{
		{Name: "message", Kind: LongText, Required: true, Searchable: true},
		{Name: "sort_order", Kind: Int},
		{Name: "is_active", Kind: Int},
	},
	OrderBy: "sort_order, id",
}

var umkmResource = Resource{
	Path:  "umkm",
	Table: "umkm",
	Fields: []Field{
		{Name: "business_name", Kind: Text, Required: true, Searchable: true},
		{Name: "owner_name", Kind: Text, Searchable: true},
		{Name: "category", Kind: Text, Searchable: true},
		{Name: "phone", Kind: Text},
		{Name: "address", Kind: LongText},
		{Name: "description", Kind: LongText, Searchable: true},
		{Name: "image_url", Kind: Text},
	},
}

var officialsResource = Resource{
	Path:  "officials",
	Table: "officials",
	Fields: []Field{
		{Name: "name", Kind: Text, Required: true, Searchable: true},
		{Name: "position", Kind: Text, Required: true, Searchable: true},
		{Name: "nip", Kind: Text},
		{Name: "phone", Kind: Text},
		{Name: "photo_url", Kind: Text},
		{Name: "sort_order", Kind: Int},
	},
	OrderBy: "sort_order, id",
}

var locationsResource = Resource{
	Path:  "locations",
	Table: "locations",
	Fields: []Field{
		{Name: "name", Kind: Text, Required: true, Searchable: true},
		{Name: "category", Kind: Text, Searchable: true},
		{Name: "address", Kind: LongText},
		{Name: "description", Kind: LongText},
		{Name: "latitude", Kind: Float},
		{Name: "longitude", Kind: Float},
	},
}

var tourismSpotsResource = Resource{
	Path:  "tourism-spots",
	Table: "tourism_spots",
	Fields: []Field{
		{Name: "name", Kind: Text, Required: true, Searchable: true},
		{Name: "description", Kind: LongText, Searchable: true},
		{Name: "address", Kind: LongText},
		{Name: "latitude", Kind: Float},
		{Name: "longitude", Kind: Float},
		{Name: "ticket_price", Kind: Float},
		{Name: "opening_hours", Kind: Text},
		{Name: "image_url", Kind: Text},
	},
}

// ResourcesFor returns the REST resources a domain serves.
func ResourcesFor(domain string) []Resource {
	switch domain {
	case config.DomainMain:
		return []Resource{usersResource, newsResource, announcementsResource, runningTextsResource}
	case config.DomainUMKM:
		return []Resource{umkmResource}
	case config.DomainAdmin:
		return []Resource{officialsResource}
	case config.DomainLocation:
		return []Resource{locationsResource, tourismSpotsResource}
	}
	return nil
}

// RegisterResources mounts every resource of domain on mux.
func RegisterResources(mux *http.ServeMux, domain string, db Querier, logger *zap.Logger) {
	for _, res := range ResourcesFor(domain) {
		NewResourceHandler(domain, res, db, schema.HashPassword, logger).RegisterRoutes(mux)
	}
}

// guardLastAdmin refuses to delete or demote the only remaining admin.
// The check and the write are separate statements, so two concurrent demotions
// of the last two admins can both pass.
func guardLastAdmin(ctx context.Context, db Querier, domain string, id int64, input map[string]any) error {
	if input != nil {
		role, present := input["role"]
		if s, ok := role.(string); ok {
			role = strings.TrimSpace(s)
		}
		if !present || role == schema.RoleAdmin {
			return nil
		}
	}

	result, err := db.Query(ctx, domain, "SELECT role FROM users WHERE id = ?", id)
	if err != nil {
		return err
	}
	if len(result.Rows) == 0 {
		return apperrors.ErrNotFound
	}
	if result.Rows[0]["role"] != schema.RoleAdmin {
		return nil
	}

	result, err = db.Query(ctx, domain, "SELECT COUNT(*) AS admin_count FROM users WHERE role = ?", schema.RoleAdmin)
	if err != nil {
		return err
	}
	v, err := datasource.MustColumn(result, "admin_count")
	if err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	n, ok := datasource.AsInt64(v)
	if !ok {
		return fmt.Errorf("count admins: unexpected %T", v)
	}
	if n <= 1 {
		return apperrors.ErrLastAdmin
	}
	return nil
}
