package routing

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/visita-intel/newsintel/internal/model"
	"github.com/visita-intel/newsintel/internal/store"
)

const (
	incidentConflict   = "source_url,description"
	syndicateTerritory = "South Africa"
)

func (r *Router) ingestIncident(ctx context.Context, inc model.Incident, a model.AnalysisResult, article model.ArticleCandidate) error {
	now := r.nowUTC()
	published := plausible(article.Published)
	location := inc.Location
	if location == "" {
		location = a.Location
	}

	row := store.Row{
		"title":          article.Title,
		"description":    inc.Description,
		"occurred_at":    firstTime(now, parsePlausible(string(inc.Date)), published),
		"type":           inc.Type,
		"severity_level": string(inc.Severity),
		"source_url":     article.URL,
		"status":         "reported",
		"location":       location,
		"published_at":   firstTime(now, published),
	}
	if article.ImageURL != "" {
		row["image_url"] = article.ImageURL
	}
	if err := r.dest.Upsert(ctx, incidentsTarget.Schema, incidentsTarget.Table, row, incidentConflict); err != nil {
		return eris.Wrap(err, "routing: upsert incident")
	}
	return nil
}

func (r *Router) ingestPeople(ctx context.Context, log *zap.Logger, a model.AnalysisResult, article model.ArticleCandidate) {
	for _, p := range a.People {
		if strings.TrimSpace(p.Name) == "" {
			continue
		}
		var err error
		switch strings.ToLower(strings.TrimSpace(p.Status)) {
		case "wanted":
			err = r.ingestListedPerson(ctx, wantedTarget, p, article)
		case "missing":
			err = r.ingestListedPerson(ctx, missingTarget, p, article)
		default:
			err = r.ingestIdentity(ctx, p)
		}
		if err != nil {
			log.Warn("routing: person write failed", zap.String("person", p.Name), zap.Error(err))
		}
	}
}

// ingestIdentity bumps last_seen_at on a known identity or creates it.
func (r *Router) ingestIdentity(ctx context.Context, p model.Person) error {
	t := identitiesTarget
	now := r.nowUTC()
	rows, err := r.dest.SelectEq(ctx, t.Schema, t.Table, "id", "full_name", p.Name)
	if err != nil {
		return eris.Wrap(err, "routing: lookup identity")
	}
	if len(rows) > 0 {
		column, value := "full_name", p.Name
		if id, ok := rows[0]["id"]; ok && id != nil {
			column, value = "id", idString(id)
		}
		if err := r.dest.UpdateEq(ctx, t.Schema, t.Table, store.Row{"last_seen_at": now}, column, value); err != nil {
			return eris.Wrap(err, "routing: touch identity")
		}
		return nil
	}
	err = r.dest.Insert(ctx, t.Schema, t.Table, store.Row{
		"full_name":          p.Name,
		"type":               p.Role,
		"contact_verified":   false,
		"data_sources_count": 1,
		"last_seen_at":       now,
	})
	if err != nil {
		return eris.Wrap(err, "routing: insert identity")
	}
	return nil
}

// ingestListedPerson records a wanted or missing person once per name.
func (r *Router) ingestListedPerson(ctx context.Context, t Target, p model.Person, article model.ArticleCandidate) error {
	rows, err := r.dest.SelectEq(ctx, t.Schema, t.Table, "id", "full_name", p.Name)
	if err != nil {
		return eris.Wrapf(err, "routing: lookup %s", t)
	}
	if len(rows) > 0 {
		return nil
	}
	err = r.dest.Insert(ctx, t.Schema, t.Table, store.Row{
		"full_name":  p.Name,
		"details":    p.Details,
		"role":       p.Role,
		"source_url": article.URL,
		"created_at": r.nowUTC(),
	})
	if err != nil {
		return eris.Wrapf(err, "routing: insert %s", t)
	}
	return nil
}

func (r *Router) ingestOrganizations(ctx context.Context, log *zap.Logger, a model.AnalysisResult) {
	for _, o := range a.Organizations {
		if strings.TrimSpace(o.Name) == "" {
			continue
		}
		var err error
		if o.Type == "Syndicate" || o.Type == "Gang" {
			err = r.insertIfAbsent(ctx, syndicatesTarget, "name", o.Name, store.Row{
				"name":              o.Name,
				"type":              o.Type,
				"primary_territory": syndicateTerritory,
				"metadata":          map[string]any{"details": o.Details},
				"created_at":        r.nowUTC(),
			})
		} else {
			err = r.insertIfAbsent(ctx, orgsTarget, "registered_name", o.Name, store.Row{
				"registered_name": o.Name,
				"type":            o.Type,
				"created_at":      r.nowUTC(),
			})
		}
		if err != nil {
			log.Warn("routing: organization write failed", zap.String("organization", o.Name), zap.Error(err))
		}
	}
}

func (r *Router) insertIfAbsent(ctx context.Context, t Target, column, value string, row store.Row) error {
	rows, err := r.dest.SelectEq(ctx, t.Schema, t.Table, "id", column, value)
	if err != nil {
		return eris.Wrapf(err, "routing: lookup %s", t)
	}
	if len(rows) > 0 {
		return nil
	}
	if err := r.dest.Insert(ctx, t.Schema, t.Table, row); err != nil {
		return eris.Wrapf(err, "routing: insert %s", t)
	}
	return nil
}

func idString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatInt(int64(id), 10)
	default:
		return fmt.Sprint(id)
	}
}
