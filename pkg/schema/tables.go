package schema

import "github.com/desa-digital/portal-engine/pkg/config"

// Users is shared with the handlers, which guard the last admin row.
var Users = Table{
	Name: "users",
	Columns: []Column{
		{Name: "username", Type: ShortText, NotNull: true, Unique: true},
		{Name: "password_hash", Type: ShortText, NotNull: true},
		{Name: "full_name", Type: ShortText},
		{Name: "role", Type: ShortText, NotNull: true, Default: "'editor'"},
	},
}

var news = Table{
	Name: "news",
	Columns: []Column{
		{Name: "title", Type: ShortText, NotNull: true},
		{Name: "slug", Type: ShortText},
		{Name: "content", Type: LongText},
		{Name: "author", Type: ShortText},
		{Name: "image_url", Type: ShortText},
		{Name: "published_at", Type: Timestamp},
	},
}

var announcements = Table{
	Name: "announcements",
	Columns: []Column{
		{Name: "title", Type: ShortText, NotNull: true},
		{Name: "content", Type: LongText},
		{Name: "starts_at", Type: Timestamp},
		{Name: "ends_at", Type: Timestamp},
	},
}

var runningTexts = Table{
	Name: "running_texts",
	Columns: []Column{
		{Name: "message", Type: LongText, NotNull: true},
		{Name: "sort_order", Type: Integer, NotNull: true, Default: "0"},
		{Name: "is_active", Type: Integer, NotNull: true, Default: "1"},
	},
}

var umkm = Table{
	Name: "umkm",
	Columns: []Column{
		{Name: "business_name", Type: ShortText, NotNull: true},
		{Name: "owner_name", Type: ShortText},
		{Name: "category", Type: ShortText},
		{Name: "phone", Type: ShortText},
		{Name: "address", Type: LongText},
		{Name: "description", Type: LongText},
		{Name: "image_url", Type: ShortText},
	},
}

var officials = Table{
	Name: "officials",
	Columns: []Column{
		{Name: "name", Type: ShortText, NotNull: true},
		{Name: "position", Type: ShortText, NotNull: true},
		{Name: "nip", Type: ShortText},
		{Name: "phone", Type: ShortText},
		{Name: "photo_url", Type: ShortText},
		{Name: "sort_order", Type: Integer, NotNull: true, Default: "0"},
	},
}

var locations = Table{
	Name: "locations",
	Columns: []Column{
		{Name: "name", Type: ShortText, NotNull: true},
		{Name: "category", Type: ShortText},
		{Name: "address", Type: LongText},
		{Name: "description", Type: LongText},
		{Name: "latitude", Type: Real},
		{Name: "longitude", Type: Real},
	},
}

var tourismSpots = Table{
	Name: "tourism_spots",
	Columns: []Column{
		{Name: "name", Type: ShortText, NotNull: true},
		{Name: "description", Type: LongText},
		{Name: "address", Type: LongText},
		{Name: "latitude", Type: Real},
		{Name: "longitude", Type: Real},
		{Name: "ticket_price", Type: Real},
		{Name: "opening_hours", Type: ShortText},
		{Name: "image_url", Type: ShortText},
	},
}

// Tables returns the tables a domain owns, in creation order.
func Tables(domain string) []Table {
	switch domain {
	case config.DomainMain:
		return []Table{Users, news, announcements, runningTexts}
	case config.DomainUMKM:
		return []Table{umkm}
	case config.DomainAdmin:
		return []Table{officials}
	case config.DomainLocation:
		return []Table{locations, tourismSpots}
	}
	return nil
}
