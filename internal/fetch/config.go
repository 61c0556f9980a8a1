package fetch

import (
	"context"

	"eventfeed/internal/graphql"
	appLog "eventfeed/internal/log"
	"eventfeed/internal/model"
)

type configData struct {
	Config *rawConfig `json:"config"`
}

type rawConfig struct {
	Version         *string         `json:"version"`
	EventCategories *[]*rawCategory `json:"eventCategories"`
	Languages       *[]*string      `json:"languages"`
}

type rawCategory struct {
	ID    *string `json:"id"`
	Label *string `json:"label"`
}

// FetchConfig retrieves the instance configuration. The configuration is
// consumed as a whole, so any missing part fails the call.
func (c *Client) FetchConfig(ctx context.Context) (model.FetchConfigResponse, error) {
	var resp graphql.Response[configData]
	if err := c.transport.PostJSON(ctx, c.endpoint, graphql.Config(), &resp); err != nil {
		return model.FetchConfigResponse{}, &TransportError{Err: err}
	}

	cfg, err := decodeConfig(resp)
	if err != nil {
		return model.FetchConfigResponse{}, err
	}

	appLog.Info("config fetched",
		"endpoint", appLog.RedactURL(c.endpoint),
		"version", cfg.InstanceVersion.String(),
		"categories", len(cfg.Categories),
		"languages", len(cfg.Languages),
	)
	return cfg, nil
}

func decodeConfig(resp graphql.Response[configData]) (model.FetchConfigResponse, error) {
	if resp.Data == nil {
		if len(resp.Errors) > 0 {
			return model.FetchConfigResponse{}, graphql.Errors(resp.Errors)
		}
		return model.FetchConfigResponse{}, &MissingFieldError{Field: "data"}
	}
	raw := resp.Data.Config
	if raw == nil {
		return model.FetchConfigResponse{}, &MissingFieldError{Field: "config"}
	}

	if raw.Version == nil {
		return model.FetchConfigResponse{}, &MissingFieldError{Field: "version"}
	}
	version, err := model.ParseInstanceVersion(*raw.Version)
	if err != nil {
		return model.FetchConfigResponse{}, &VersionParseError{Err: err}
	}

	if raw.EventCategories == nil {
		return model.FetchConfigResponse{}, &MissingFieldError{Field: "eventCategories"}
	}
	categories := make([]model.Category, 0, len(*raw.EventCategories))
	for _, rc := range *raw.EventCategories {
		if rc == nil {
			return model.FetchConfigResponse{}, &MissingFieldError{Field: "category"}
		}
		if rc.Label == nil {
			return model.FetchConfigResponse{}, &MissingFieldError{Field: "label"}
		}
		if rc.ID == nil {
			return model.FetchConfigResponse{}, &MissingFieldError{Field: "id"}
		}
		categories = append(categories, model.Category{ID: *rc.ID, Label: *rc.Label})
	}

	if raw.Languages == nil {
		return model.FetchConfigResponse{}, &MissingFieldError{Field: "languages"}
	}
	// Null language codes are dropped rather than failing the config.
	languages := make([]string, 0, len(*raw.Languages))
	for _, l := range *raw.Languages {
		if l != nil {
			languages = append(languages, *l)
		}
	}

	return model.FetchConfigResponse{
		InstanceVersion: version,
		Categories:      categories,
		Languages:       languages,
	}, nil
}
