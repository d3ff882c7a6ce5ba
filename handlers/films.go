package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"kinoshka/models"
	"kinoshka/services/progress"
	"kinoshka/services/userstate"
)

type filmStore interface {
	Profile(id int) (models.UserFilmProfile, bool)
	RecordWatch(details models.FilmDetails) (models.UserFilmProfile, error)
	SaveProfile(details models.FilmDetails, edit models.ProfileEdit) (models.UserFilmProfile, error)
}

var _ filmStore = (*userstate.Service)(nil)

type FilmsHandler struct {
	Catalog metadataService
	Store   filmStore
}

func NewFilmsHandler(catalog metadataService, store filmStore) *FilmsHandler {
	return &FilmsHandler{Catalog: catalog, Store: store}
}

// FilmResponse is a title with its sections and the user's classification.
type FilmResponse struct {
	Bundle   models.DetailBundle     `json:"bundle"`
	Title    string                  `json:"title"`
	Subtitle *string                 `json:"subtitle,omitempty"`
	IsLocal  bool                    `json:"isRussian"`
	Profile  *models.UserFilmProfile `json:"userProfile,omitempty"`
	Progress *models.WatchProgress   `json:"progress,omitempty"`
}

// ProfileResponse is the stored profile after a write.
type ProfileResponse struct {
	Profile  models.UserFilmProfile `json:"userProfile"`
	Progress *models.WatchProgress  `json:"progress,omitempty"`
}

func withProgress(profile models.UserFilmProfile) ProfileResponse {
	resp := ProfileResponse{Profile: profile}
	if wp, ok := progress.ForProfile(profile); ok {
		resp.Progress = &wp
	}
	return resp
}

// Details returns the detail bundle of a title together with its profile.
func (h *FilmsHandler) Details(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	bundle, err := h.Catalog.DetailBundle(r.Context(), id)
	if err != nil {
		writeCatalogError(w, r, err)
		return
	}

	resp := FilmResponse{
		Bundle:   bundle,
		Title:    bundle.Details.DisplayTitle(),
		Subtitle: bundle.Details.Subtitle(),
		IsLocal:  bundle.Details.IsLocal(),
	}
	if profile, found := h.Store.Profile(id); found {
		pr := withProgress(profile)
		resp.Profile = &pr.Profile
		resp.Progress = pr.Progress
	}
	writeJSON(w, http.StatusOK, resp)
}

// Watch records that playback of the title started.
func (h *FilmsHandler) Watch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	details, err := h.Catalog.Details(r.Context(), id)
	if err != nil {
		writeCatalogError(w, r, err)
		return
	}
	profile, err := h.Store.RecordWatch(details)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, withProgress(profile))
}

// PutProfile replaces the user's classification of the title.
func (h *FilmsHandler) PutProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var edit models.ProfileEdit
	if !decodeBody(w, r, &edit) {
		return
	}
	if err := validate.Struct(edit); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	details, err := h.Catalog.Details(r.Context(), id)
	if err != nil {
		writeCatalogError(w, r, err)
		return
	}
	profile, err := h.Store.SaveProfile(details, edit)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, withProgress(profile))
}

func validationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	return "invalid " + fe.Field() + ": must satisfy " + fe.Tag() + "=" + fe.Param()
}
