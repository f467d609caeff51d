package http

import (
	"net/http"
	"strconv"

	"nestbook/pkg/config"
	apperrors "nestbook/pkg/errors"
	"nestbook/pkg/model"
)

// ExtractPage reads limit/offset, falling back to page/page_size for clients that
// page by number.
func ExtractPage(r *http.Request, cfg *config.Config) (model.Page, error) {
	query := r.URL.Query()

	limit := 0
	if s := firstNonEmpty(query.Get("limit"), query.Get("page_size")); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return model.Page{}, apperrors.InvalidInput("invalid limit parameter: " + s)
		}
		limit = v
	}
	limit = cfg.NormalizePageSize(limit)

	var offset int64
	if s := query.Get("offset"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return model.Page{}, apperrors.InvalidInput("invalid offset parameter: " + s)
		}
		offset = v
	} else if s := query.Get("page"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil || v < 1 {
			return model.Page{}, apperrors.InvalidInput("invalid page parameter: " + s)
		}
		offset = (v - 1) * int64(limit)
	}

	return model.Page{Limit: limit, Offset: max(0, offset)}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
