package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zencounsel/counsel-api/internal/model"
)

var (
	idKeys         = []string{"counsellorId", "counselorId", "id", "_id"}
	subSpecKeys    = []string{"subSpecializations", "subSpecialisations", "sub_specializations", "subSpecialization"}
	experienceKeys = []string{"experienceYears", "experience", "yearsOfExperience"}
	feeKeys        = []string{"feePerSessionINR", "fee", "feeINR"}
	photoKeys      = []string{"photoUrl", "photoURL", "photo"}
)

// parseCounsellors decodes a YAML or JSON list of counsellor records.
// Records without an id or a name are rejected with their index.
func parseCounsellors(data []byte, now time.Time) ([]*model.Counsellor, error) {
	var raw []map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode seed file: %w", err)
	}

	out := make([]*model.Counsellor, 0, len(raw))
	for i, rec := range raw {
		c := &model.Counsellor{
			ID:                 firstString(rec, idKeys...),
			Name:               firstString(rec, "name"),
			Email:              firstString(rec, "email"),
			Phone:              firstString(rec, "phone"),
			Specialization:     firstString(rec, "specialization", "specialisation"),
			SubSpecializations: firstList(rec, subSpecKeys...),
			Languages:          firstList(rec, "languages"),
			ExperienceYears:    firstNumber(rec, experienceKeys...),
			FeePerSessionINR:   firstNumber(rec, feeKeys...),
			PhotoURL:           firstString(rec, photoKeys...),
			Bio:                firstString(rec, "bio"),
			Active:             true,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if v, ok := rec["active"].(bool); ok {
			c.Active = v
		}
		if c.ID == "" || c.Name == "" {
			return nil, fmt.Errorf("record %d: id and name are required", i)
		}
		out = append(out, c)
	}
	return out, nil
}

func firstString(rec map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		switch v := rec[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case int:
			return strconv.Itoa(v)
		}
	}
	return ""
}

// firstList accepts a list or a comma separated string.
func firstList(rec map[string]interface{}, keys ...string) []string {
	for _, k := range keys {
		switch v := rec[k].(type) {
		case []interface{}:
			list := make([]string, 0, len(v))
			for _, item := range v {
				if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
					list = append(list, strings.TrimSpace(s))
				}
			}
			return list
		case string:
			var list []string
			for _, part := range strings.Split(v, ",") {
				if s := strings.TrimSpace(part); s != "" {
					list = append(list, s)
				}
			}
			return list
		}
	}
	return []string{}
}

func firstNumber(rec map[string]interface{}, keys ...string) float64 {
	for _, k := range keys {
		switch v := rec[k].(type) {
		case int:
			return float64(v)
		case float64:
			return v
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f
			}
		}
	}
	return 0
}
