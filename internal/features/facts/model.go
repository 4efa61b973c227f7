package facts

import (
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Contact is the recipient profile that tag and field mutations land on.
type Contact struct {
	RecipientID string                 `json:"recipientId" bson:"recipient_id"`
	Email       string                 `json:"email" bson:"email"`
	Attributes  map[string]interface{} `json:"attributes" bson:"attributes"`
	Tags        []string               `json:"tags" bson:"tags"`
	UpdatedAt   time.Time              `json:"updatedAt" bson:"updated_at"`
}

// Facts flattens the contact into the map conditions are evaluated
// against: attributes at the top level, plus email and tags.
func (c *Contact) Facts() map[string]interface{} {
	out := make(map[string]interface{}, len(c.Attributes)+2)
	for k, v := range c.Attributes {
		out[k] = normalizeBSON(v)
	}
	if c.Email != "" {
		out["email"] = c.Email
	}
	tags := make([]interface{}, 0, len(c.Tags))
	for _, t := range c.Tags {
		tags = append(tags, t)
	}
	out["tags"] = tags
	return out
}

// normalizeBSON converts driver-decoded values into the plain Go forms the
// engine understands: dates become time.Time and nested documents and
// arrays become maps and slices.
func normalizeBSON(v interface{}) interface{} {
	switch x := v.(type) {
	case primitive.DateTime:
		return x.Time().UTC()
	case primitive.Timestamp:
		return time.Unix(int64(x.T), 0).UTC()
	case primitive.Decimal128:
		if f, err := strconv.ParseFloat(x.String(), 64); err == nil {
			return f
		}
		return x.String()
	case primitive.D:
		out := make(map[string]interface{}, len(x))
		for _, e := range x {
			out[e.Key] = normalizeBSON(e.Value)
		}
		return out
	case primitive.M:
		return normalizeMap(x)
	case map[string]interface{}:
		return normalizeMap(x)
	case primitive.A:
		return normalizeSlice(x)
	case []interface{}:
		return normalizeSlice(x)
	}
	return v
}

func normalizeMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = normalizeBSON(v)
	}
	return out
}

func normalizeSlice(items []interface{}) []interface{} {
	out := make([]interface{}, len(items))
	for i, v := range items {
		out[i] = normalizeBSON(v)
	}
	return out
}

// Merge returns base overlaid with override. Neither input is modified.
func Merge(base, override map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}
