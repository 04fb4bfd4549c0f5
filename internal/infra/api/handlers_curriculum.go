package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"drobe-backend/internal/domain/model"
	"drobe-backend/internal/domain/ports/repository"
	"drobe-backend/internal/usecase"
)

type curriculumDTO struct {
	ID           string             `json:"id"`
	Title        string             `json:"title"`
	Description  string             `json:"description,omitempty"`
	Country      string             `json:"country"`
	ImageURL     string             `json:"image_url,omitempty"`
	Translations model.Translations `json:"translations,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

type labelDTO struct {
	ID           string             `json:"id"`
	CurriculumID string             `json:"curriculum_id"`
	Title        string             `json:"title"`
	Order        int                `json:"order"`
	Translations model.Translations `json:"translations,omitempty"`
}

type topicDTO struct {
	ID           string             `json:"id"`
	LabelID      string             `json:"label_id"`
	Title        string             `json:"title"`
	Description  string             `json:"description,omitempty"`
	ContentLink  string             `json:"content_link,omitempty"`
	ImageURL     string             `json:"image_url,omitempty"`
	Order        int                `json:"order"`
	Translations model.Translations `json:"translations,omitempty"`
}

type labelNodeDTO struct {
	labelDTO
	Topics []topicDTO `json:"topics"`
}

type treeDTO struct {
	Curriculum curriculumDTO  `json:"curriculum"`
	Labels     []labelNodeDTO `json:"labels"`
}

type curriculumInput struct {
	Title        string             `json:"title"`
	Description  string             `json:"description"`
	Country      string             `json:"country"`
	ImageKey     string             `json:"image_key"`
	Translations model.Translations `json:"translations"`
}

type labelInput struct {
	CurriculumID string             `json:"curriculum_id"`
	Title        string             `json:"title"`
	Order        int                `json:"order"`
	Translations model.Translations `json:"translations"`
}

type topicInput struct {
	LabelID      string             `json:"label_id"`
	Title        string             `json:"title"`
	Description  string             `json:"description"`
	ContentLink  string             `json:"content_link"`
	ImageKey     string             `json:"image_key"`
	Order        int                `json:"order"`
	Translations model.Translations `json:"translations"`
}

func (s *Server) mediaURL(key string) string {
	if key == "" || s.media == nil {
		return ""
	}
	return s.media.URL(key)
}

func (s *Server) toCurriculumDTO(c *model.Curriculum) curriculumDTO {
	return curriculumDTO{
		ID:           c.ID,
		Title:        c.Title,
		Description:  c.Description,
		Country:      c.Country,
		ImageURL:     s.mediaURL(c.ImageKey),
		Translations: c.Translations,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func (s *Server) toLabelDTO(l *model.Label) labelDTO {
	return labelDTO{
		ID:           l.ID,
		CurriculumID: l.CurriculumID,
		Title:        l.Title,
		Order:        l.Order,
		Translations: l.Translations,
	}
}

func (s *Server) toTopicDTO(t *model.Topic) topicDTO {
	return topicDTO{
		ID:           t.ID,
		LabelID:      t.LabelID,
		Title:        t.Title,
		Description:  t.Description,
		ContentLink:  t.ContentLink,
		ImageURL:     s.mediaURL(t.ImageKey),
		Order:        t.Order,
		Translations: t.Translations,
	}
}

func (s *Server) createCurriculum(w http.ResponseWriter, r *http.Request) {
	var in curriculumInput
	if !decodeJSON(w, r, &in) {
		return
	}
	c, err := s.curricula.CreateCurriculum(r.Context(), usecase.CurriculumInput(in))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, s.toCurriculumDTO(c))
}

func (s *Server) listCurricula(w http.ResponseWriter, r *http.Request) {
	f := repository.CurriculumFilter{
		Country: r.URL.Query().Get("country"),
		Search:  r.URL.Query().Get("search"),
	}
	cs, err := s.curricula.ListCurricula(r.Context(), f)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	out := make([]curriculumDTO, 0, len(cs))
	for _, c := range cs {
		out = append(out, s.toCurriculumDTO(c))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) listCountries(w http.ResponseWriter, r *http.Request) {
	countries, err := s.curricula.Countries(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if countries == nil {
		countries = []string{}
	}
	respondJSON(w, http.StatusOK, map[string][]string{"countries": countries})
}

func (s *Server) getCurriculum(w http.ResponseWriter, r *http.Request) {
	c, err := s.curricula.GetCurriculum(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.toCurriculumDTO(c))
}

func (s *Server) updateCurriculum(w http.ResponseWriter, r *http.Request) {
	var in curriculumInput
	if !decodeJSON(w, r, &in) {
		return
	}
	c, err := s.curricula.UpdateCurriculum(r.Context(), chi.URLParam(r, "id"), usecase.CurriculumInput(in))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.toCurriculumDTO(c))
}

func (s *Server) deleteCurriculum(w http.ResponseWriter, r *http.Request) {
	if err := s.curricula.DeleteCurriculum(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) curriculumTree(w http.ResponseWriter, r *http.Request) {
	tree, err := s.curricula.Tree(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	out := treeDTO{
		Curriculum: s.toCurriculumDTO(tree.Curriculum),
		Labels:     make([]labelNodeDTO, 0, len(tree.Labels)),
	}
	for _, node := range tree.Labels {
		n := labelNodeDTO{labelDTO: s.toLabelDTO(node.Label), Topics: make([]topicDTO, 0, len(node.Topics))}
		for _, tp := range node.Topics {
			n.Topics = append(n.Topics, s.toTopicDTO(tp))
		}
		out.Labels = append(out.Labels, n)
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) listLabels(w http.ResponseWriter, r *http.Request) {
	labels, err := s.curricula.ListLabels(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	out := make([]labelDTO, 0, len(labels))
	for _, l := range labels {
		out = append(out, s.toLabelDTO(l))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) createLabel(w http.ResponseWriter, r *http.Request) {
	var in labelInput
	if !decodeJSON(w, r, &in) {
		return
	}
	l, err := s.curricula.CreateLabel(r.Context(), usecase.LabelInput(in))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, s.toLabelDTO(l))
}

func (s *Server) updateLabel(w http.ResponseWriter, r *http.Request) {
	var in labelInput
	if !decodeJSON(w, r, &in) {
		return
	}
	l, err := s.curricula.UpdateLabel(r.Context(), chi.URLParam(r, "id"), usecase.LabelInput(in))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.toLabelDTO(l))
}

func (s *Server) deleteLabel(w http.ResponseWriter, r *http.Request) {
	if err := s.curricula.DeleteLabel(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) listTopicsByLabel(w http.ResponseWriter, r *http.Request) {
	topics, err := s.curricula.ListTopicsByLabel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	out := make([]topicDTO, 0, len(topics))
	for _, t := range topics {
		out = append(out, s.toTopicDTO(t))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) listTopicsByCurriculum(w http.ResponseWriter, r *http.Request) {
	topics, err := s.curricula.ListTopicsByCurriculum(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	out := make([]topicDTO, 0, len(topics))
	for _, t := range topics {
		out = append(out, s.toTopicDTO(t))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) createTopic(w http.ResponseWriter, r *http.Request) {
	var in topicInput
	if !decodeJSON(w, r, &in) {
		return
	}
	t, err := s.curricula.CreateTopic(r.Context(), usecase.TopicInput(in))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, s.toTopicDTO(t))
}

func (s *Server) getTopic(w http.ResponseWriter, r *http.Request) {
	t, err := s.curricula.GetTopic(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.toTopicDTO(t))
}

func (s *Server) updateTopic(w http.ResponseWriter, r *http.Request) {
	var in topicInput
	if !decodeJSON(w, r, &in) {
		return
	}
	t, err := s.curricula.UpdateTopic(r.Context(), chi.URLParam(r, "id"), usecase.TopicInput(in))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.toTopicDTO(t))
}

func (s *Server) deleteTopic(w http.ResponseWriter, r *http.Request) {
	if err := s.curricula.DeleteTopic(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
