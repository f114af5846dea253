package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/relmanhq/relman/internal/domain"
)

// ListProjects возвращает все проекты.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.projectRepo.List(r.Context())
	if HandleRepoError(w, h.logger, err, "projects not found") {
		return
	}

	result := make([]ProjectResponse, 0, len(projects))
	for _, p := range projects {
		result = append(result, ProjectFromDomain(p))
	}

	List(w, result, len(result))
}

// CreateProject создаёт новый проект.
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	project := &domain.Project{
		ID:            uuid.New(),
		Name:          req.Name,
		RepoURL:       req.RepoURL,
		Branch:        req.Branch,
		Remote:        req.Remote,
		RegistryURL:   req.RegistryURL,
		Package:       req.Package,
		InstallCmd:    req.InstallCmd,
		BuildCmd:      req.BuildCmd,
		TestCmd:       req.TestCmd,
		GitName:       req.GitName,
		GitEmail:      req.GitEmail,
		CredentialRef: req.CredentialRef,
		RetentionDays: req.RetentionDays,
		IsActive:      true,
	}
	project.ApplyDefaults()

	if err := project.Validate(); err != nil {
		BadRequest(w, err.Error())
		return
	}

	if err := h.projectRepo.Create(r.Context(), project); err != nil {
		HandleRepoError(w, h.logger, err, "project not found")
		return
	}

	h.logger.Info("project created", "project_id", project.ID, "name", project.Name)
	Created(w, ProjectFromDomain(*project))
}

// GetProject возвращает проект по ID.
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid project id")
		return
	}

	project, err := h.projectRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "project not found") {
		return
	}

	Success(w, ProjectFromDomain(*project))
}

// UpdateProject обновляет проект. Nil-поля запроса не меняются.
func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid project id")
		return
	}

	var req UpdateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	project, err := h.projectRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "project not found") {
		return
	}

	applyProjectUpdate(project, &req)

	if err := project.Validate(); err != nil {
		BadRequest(w, err.Error())
		return
	}

	if err := h.projectRepo.Update(r.Context(), project); err != nil {
		HandleRepoError(w, h.logger, err, "project not found")
		return
	}

	h.logger.Info("project updated", "project_id", project.ID)
	Success(w, ProjectFromDomain(*project))
}

// DeleteProject удаляет проект.
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid project id")
		return
	}

	if err := h.projectRepo.Delete(r.Context(), id); err != nil {
		HandleRepoError(w, h.logger, err, "project not found")
		return
	}

	h.logger.Info("project deleted", "project_id", id)
	NoContent(w)
}

func applyProjectUpdate(p *domain.Project, req *UpdateProjectRequest) {
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.RepoURL != nil {
		p.RepoURL = *req.RepoURL
	}
	if req.Branch != nil {
		p.Branch = *req.Branch
	}
	if req.Remote != nil {
		p.Remote = *req.Remote
	}
	if req.RegistryURL != nil {
		p.RegistryURL = *req.RegistryURL
	}
	if req.Package != nil {
		p.Package = *req.Package
	}
	if req.InstallCmd != nil {
		p.InstallCmd = *req.InstallCmd
	}
	if req.BuildCmd != nil {
		p.BuildCmd = *req.BuildCmd
	}
	if req.TestCmd != nil {
		p.TestCmd = *req.TestCmd
	}
	if req.GitName != nil {
		p.GitName = *req.GitName
	}
	if req.GitEmail != nil {
		p.GitEmail = *req.GitEmail
	}
	if req.CredentialRef != nil {
		p.CredentialRef = *req.CredentialRef
	}
	if req.RetentionDays != nil {
		p.RetentionDays = *req.RetentionDays
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
}
