package models

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ListQuery carries the decoded read parameters for a collection listing:
// a filter document, sort order, projection, paging window and count mode.
type ListQuery struct {
	Where      bson.M
	Sort       bson.D
	Projection bson.M
	Skip       int64
	Limit      int64
	Count      bool
}

// DecodeListQuery turns the where/sort/select/filter/skip/limit/count query
// parameters into a ListQuery. The JSON-encoded parameters decode with
// fallback: a missing or malformed value yields the default rather than an
// error, so a bad query parameter never fails the request.
func DecodeListQuery(values url.Values, defaultLimit int64) ListQuery {
	query := ListQuery{Where: bson.M{}, Limit: defaultLimit}

	decodeJSONParam(values.Get("where"), &query.Where)
	normalizeIDFilter(query.Where)

	query.Sort = decodeSortParam(values.Get("sort"))
	query.Projection = DecodeProjection(values)

	if raw := values.Get("skip"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 {
			query.Skip = n
		}
	}
	if raw := values.Get("limit"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 {
			query.Limit = n
		}
	}

	query.Count = values.Get("count") == "true"
	return query
}

// DecodeProjection reads the projection document from the query string.
// "filter" wins over "select" when both are present.
func DecodeProjection(values url.Values) bson.M {
	raw := values.Get("filter")
	if raw == "" {
		raw = values.Get("select")
	}
	var projection bson.M
	if !decodeJSONParam(raw, &projection) {
		return nil
	}
	return projection
}

func decodeJSONParam(raw string, dst interface{}) bool {
	if raw == "" {
		return false
	}
	return json.Unmarshal([]byte(raw), dst) == nil
}

// normalizeIDFilter converts a string _id filter into an ObjectID so that
// where={"_id":"<hex>"} matches stored documents instead of silently missing.
func normalizeIDFilter(where bson.M) {
	switch id := where["_id"].(type) {
	case string:
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			where["_id"] = oid
		}
	case map[string]interface{}:
		for op, value := range id {
			list, ok := value.([]interface{})
			if !ok {
				continue
			}
			for i, item := range list {
				if hex, ok := item.(string); ok {
					if oid, err := primitive.ObjectIDFromHex(hex); err == nil {
						list[i] = oid
					}
				}
			}
			id[op] = list
		}
	}
}

// decodeSortParam decodes the sort document while preserving key order,
// which a plain map would lose for multi-key sorts.
func decodeSortParam(raw string) bson.D {
	if raw == "" {
		return nil
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil || tok != json.Delim('{') {
		return nil
	}

	var sort bson.D
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil
		}

		valTok, err := dec.Token()
		if err != nil {
			return nil
		}

		direction := 1
		switch v := valTok.(type) {
		case json.Number:
			if n, err := v.Int64(); err == nil && n < 0 {
				direction = -1
			}
		case string:
			if v == "desc" || v == "descending" || v == "-1" {
				direction = -1
			}
		}
		sort = append(sort, bson.E{Key: key, Value: direction})
	}
	return sort
}
