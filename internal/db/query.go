package db

import (
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/campuslink/campuslink/internal/auth"
)

// reservedParams are request parameters that shape the query itself and
// must never become field filters.
var reservedParams = map[string]struct{}{
	"keyword": {},
	"page":    {},
	"limit":   {},
}

// BuildUserFilter translates a listing query into a Mongo filter: an
// optional case-insensitive keyword substring match on the name, then
// exact-match filters for the remaining fields.
func BuildUserFilter(query auth.ListQuery) bson.M {
	filter := bson.M{}

	if query.Keyword != "" {
		filter["name"] = bson.M{
			"$regex":   regexp.QuoteMeta(query.Keyword),
			"$options": "i",
		}
	}

	for field, value := range query.Filters {
		if _, reserved := reservedParams[field]; reserved {
			continue
		}
		if value == "" {
			continue
		}
		filter[field] = value
	}

	return filter
}

// ListOptions applies page/limit windowing when present.
func ListOptions(page, limit int64) *options.FindOptions {
	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(limit)
		if page > 1 {
			opts.SetSkip((page - 1) * limit)
		}
	}
	return opts
}
