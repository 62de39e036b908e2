package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	. "polls/pkg/common"
	"polls/pkg/logger"
	"polls/pkg/post"
	"polls/pkg/user"
)

type (
	IPostRepo interface {
		Add(context.Context, *post.Post) (post.PostId, error)
		Delete(ctx context.Context, id post.PostId, creatorId string) error
		Trending(ctx context.Context, limit, offset int) ([]*post.Post, error)
	}

	IEngagement interface {
		Vote(ctx context.Context, id post.PostId, optionIndex int, userIdentifier string) (*post.Post, error)
		ToggleLike(ctx context.Context, id post.PostId, userIdentifier string) (*post.Post, bool, error)
		Share(ctx context.Context, id post.PostId, userIdentifier string) (*post.Post, error)
		View(ctx context.Context, id post.PostId, userIdentifier string) (*post.Post, error)
	}

	ICreatorRepo interface {
		GetByIdentifier(ctx context.Context, identifier string) (*user.User, error)
	}
)

type PostHandler struct {
	PostRepo   IPostRepo
	Engagement IEngagement
	Creators   ICreatorRepo
	Now        func() time.Time
}

func NewPostHandler(posts IPostRepo, engagement IEngagement, creators ICreatorRepo) *PostHandler {
	return &PostHandler{
		PostRepo:   posts,
		Engagement: engagement,
		Creators:   creators,
		Now:        time.Now,
	}
}

type (
	newPostReq struct {
		CreatorIdentifier string   `json:"creatorIdentifier"`
		Title             string   `json:"title"`
		ImageURL          string   `json:"imageUrl"`
		Tags              []string `json:"tags"`
		Options           []string `json:"options"`
	}

	voteReq struct {
		OptionIndex    *int   `json:"optionIndex"`
		UserIdentifier string `json:"userIdentifier"`
	}

	actorReq struct {
		UserIdentifier string `json:"userIdentifier"`
	}

	likeResp struct {
		Post  post.Detail `json:"post"`
		Liked bool        `json:"liked"`
	}

	PostsResp struct {
		Posts []post.Summary `json:"posts"`
	}
)

var errBadBody = Validation("can't parse request body")

func postId(r *http.Request) post.PostId {
	return post.PostId(mux.Vars(r)["post_id"])
}

func (ph *PostHandler) Add(w http.ResponseWriter, r *http.Request) {
	req := new(newPostReq)
	if err := ParseReqBody(r.Body, req); err != nil {
		logger.Log(r.Context()).Infof("can't parse post from request body: %v", err)
		WriteErr(w, errBadBody)
		return
	}

	creatorId := strings.TrimSpace(req.CreatorIdentifier)
	if creatorId == "" {
		WriteErr(w, Validation("creatorIdentifier is required"))
		return
	}
	creator, err := ph.Creators.GetByIdentifier(r.Context(), creatorId)
	if err != nil {
		logger.Log(r.Context()).Infof("can't find post creator %q: %v", creatorId, err)
		WriteErr(w, err)
		return
	}

	p, err := post.New(creator.Identifier, creator.Name, req.Title, req.ImageURL, req.Tags, req.Options, ph.Now().UTC())
	if err != nil {
		WriteErr(w, err)
		return
	}
	if _, err := ph.PostRepo.Add(r.Context(), p); err != nil {
		logger.Log(r.Context()).Errorf("can't add post to the repo: %v", err)
		WriteErr(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	WriteRespJSON(w, p.Detail(creator.Identifier))
}

// Get returns the post and counts the read as a view.
func (ph *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	viewer := r.URL.Query().Get("userIdentifier")
	p, err := ph.Engagement.View(r.Context(), postId(r), viewer)
	if err != nil {
		logger.Log(r.Context()).Infof("can't view post: %v", err)
		WriteErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	WriteRespJSON(w, p.Detail(strings.TrimSpace(viewer)))
}

func (ph *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid := strings.TrimSpace(r.URL.Query().Get("userIdentifier"))
	if uid == "" {
		WriteErr(w, Validation("userIdentifier is required"))
		return
	}
	if err := ph.PostRepo.Delete(r.Context(), postId(r), uid); err != nil {
		logger.Log(r.Context()).Infof("can't remove post: %v", err)
		WriteErr(w, err)
		return
	}
	WriteMsg(w, "success", http.StatusOK)
}

func (ph *PostHandler) Vote(w http.ResponseWriter, r *http.Request) {
	req := new(voteReq)
	if err := ParseReqBody(r.Body, req); err != nil {
		WriteErr(w, errBadBody)
		return
	}
	if req.OptionIndex == nil {
		WriteErr(w, Validation("optionIndex is required"))
		return
	}

	p, err := ph.Engagement.Vote(r.Context(), postId(r), *req.OptionIndex, req.UserIdentifier)
	if err != nil {
		logger.Log(r.Context()).Infof("vote rejected: %v", err)
		WriteErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	WriteRespJSON(w, p.Detail(strings.TrimSpace(req.UserIdentifier)))
}

func (ph *PostHandler) Like(w http.ResponseWriter, r *http.Request) {
	req := new(actorReq)
	if err := ParseReqBody(r.Body, req); err != nil {
		WriteErr(w, errBadBody)
		return
	}

	p, liked, err := ph.Engagement.ToggleLike(r.Context(), postId(r), req.UserIdentifier)
	if err != nil {
		logger.Log(r.Context()).Infof("like rejected: %v", err)
		WriteErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	WriteRespJSON(w, likeResp{Post: p.Detail(strings.TrimSpace(req.UserIdentifier)), Liked: liked})
}

func (ph *PostHandler) Share(w http.ResponseWriter, r *http.Request) {
	req := new(actorReq)
	if err := ParseReqBody(r.Body, req); err != nil {
		WriteErr(w, errBadBody)
		return
	}

	p, err := ph.Engagement.Share(r.Context(), postId(r), req.UserIdentifier)
	if err != nil {
		logger.Log(r.Context()).Infof("share rejected: %v", err)
		WriteErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	WriteRespJSON(w, p.Detail(strings.TrimSpace(req.UserIdentifier)))
}

func (ph *PostHandler) Trending(w http.ResponseWriter, r *http.Request) {
	limit, skip := Page(r)
	posts, err := ph.PostRepo.Trending(r.Context(), limit, skip)
	if err != nil {
		logger.Log(r.Context()).Errorf("can't load trending posts: %v", err)
		WriteErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	WriteRespJSON(w, PostsResp{Posts: post.Summaries(posts)})
}
