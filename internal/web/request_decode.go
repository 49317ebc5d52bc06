package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

func (a *App) decodeRequest(w http.ResponseWriter, r *http.Request, out any) bool {
	body := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer body.Close()
	if err := decodeStrictJSON(body, out); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

// decodeStrictJSON accepts exactly one JSON object with known fields.
func decodeStrictJSON(body io.Reader, out any) error {
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("body is empty")
		}
		return err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return errors.New("multiple json values are not allowed")
	}
	return nil
}
