package handler

import (
	"fmt"
	"net/http"

	"plateserver/internal/repository"
)

type operation int

const (
	opListPlates operation = iota
	opListPlatesByTrack
	opCreatePlate
	opClearPlates
	opCreateAuthorized
	opListAuthorized
	opClearAuthorized
	opListMatching
)

var operationNames = map[operation]string{
	opListPlates:        "list_plates",
	opListPlatesByTrack: "list_plates_by_track",
	opCreatePlate:       "create_plate",
	opClearPlates:       "clear_plates",
	opCreateAuthorized:  "create_authorized_plate",
	opListAuthorized:    "list_authorized_plates",
	opClearAuthorized:   "clear_authorized_plates",
	opListMatching:      "list_matching_plates",
}

// storeFailure is the only place where a repository failure becomes an HTTP
// status and message.
func storeFailure(op operation, err error) (int, string) {
	detail := repository.MessageOf(err)

	switch op {
	case opCreatePlate:
		return http.StatusBadRequest, fmt.Sprintf("Error creating plate: %s", detail)
	case opCreateAuthorized:
		if repository.KindOf(err) == repository.KindDuplicate {
			return http.StatusBadRequest, "Plate already exists"
		}
		return http.StatusBadRequest, detail
	case opClearPlates, opClearAuthorized:
		return http.StatusInternalServerError, fmt.Sprintf("Error clearing table: %s", detail)
	case opListMatching:
		return http.StatusInternalServerError, fmt.Sprintf("Error fetching matching plates: %s", detail)
	case opListAuthorized:
		return http.StatusInternalServerError, fmt.Sprintf("Error fetching authorized plates: %s", detail)
	default:
		return http.StatusInternalServerError, fmt.Sprintf("Error fetching plates: %s", detail)
	}
}

func (h *Handler) respondStoreError(w http.ResponseWriter, op operation, err error) {
	status, message := storeFailure(op, err)

	if h.metrics != nil {
		h.metrics.StoreError(operationNames[op], repository.KindOf(err).String())
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("%s failed: %v", operationNames[op], err)
	} else {
		h.logger.Warning("%s rejected: %v", operationNames[op], err)
	}

	h.writeDetail(w, status, message)
}
