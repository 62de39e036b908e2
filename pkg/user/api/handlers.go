package api

//go:generate mockgen -source=handlers.go -destination=mock_handlers.go -package=api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	. "polls/pkg/common"
	"polls/pkg/logger"
	"polls/pkg/post"
	"polls/pkg/user"
)

type (
	IUserRepo interface {
		Upsert(ctx context.Context, p user.Profile) (*user.User, error)
		GetByIdentifier(ctx context.Context, identifier string) (*user.User, error)
	}

	IFeedRanker interface {
		Rank(ctx context.Context, userIdentifier string, limit, offset int) ([]*post.Post, error)
	}

	UserHandler struct {
		Repo   IUserRepo
		Ranker IFeedRanker
	}

	FeedResp struct {
		Posts []post.Summary `json:"posts"`
	}
)

func NewUserHandler(repo IUserRepo, feed IFeedRanker) *UserHandler {
	return &UserHandler{Repo: repo, Ranker: feed}
}

// Upsert creates the user or refreshes its profile.
func (uh *UserHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	p := new(user.Profile)
	if err := ParseReqBody(r.Body, p); err != nil {
		logger.Log(r.Context()).Infof("can't parse user from request body: %v", err)
		WriteErr(w, Validation("can't parse request body"))
		return
	}
	if err := p.Validate(); err != nil {
		WriteErr(w, err)
		return
	}

	u, err := uh.Repo.Upsert(r.Context(), *p)
	if err != nil {
		logger.Log(r.Context()).Errorf("can't upsert user: %v", err)
		WriteErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	WriteRespJSON(w, u)
}

func (uh *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := uh.Repo.GetByIdentifier(r.Context(), mux.Vars(r)["user_identifier"])
	if err != nil {
		WriteErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	WriteRespJSON(w, u)
}

func (uh *UserHandler) Feed(w http.ResponseWriter, r *http.Request) {
	limit, skip := Page(r)
	posts, err := uh.Ranker.Rank(r.Context(), mux.Vars(r)["user_identifier"], limit, skip)
	if err != nil {
		logger.Log(r.Context()).Errorf("can't rank feed: %v", err)
		WriteErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	WriteRespJSON(w, FeedResp{Posts: post.Summaries(posts)})
}
