package handler

import (
	"time"

	"github.com/sakif/conduit/internal/model"
)

// Wire shapes. Internal fields such as ids, password hashes and author ids
// never leave through these types.

type userView struct {
	Email    string  `json:"email"`
	Token    string  `json:"token"`
	Username string  `json:"username"`
	Bio      *string `json:"bio"`
	Image    *string `json:"image"`
}

type userResponse struct {
	User userView `json:"user"`
}

func newUserResponse(u model.User, token string) userResponse {
	return userResponse{User: userView{
		Email:    u.Email,
		Token:    token,
		Username: u.Username,
		Bio:      u.Bio,
		Image:    u.Image,
	}}
}

type profileView struct {
	Username  string  `json:"username"`
	Bio       *string `json:"bio"`
	Image     *string `json:"image"`
	Following bool    `json:"following"`
}

type profileResponse struct {
	Profile profileView `json:"profile"`
}

func newProfileView(p model.Profile) profileView {
	return profileView{
		Username:  p.Username,
		Bio:       p.Bio,
		Image:     p.Image,
		Following: p.Following,
	}
}

type articleView struct {
	ID             string      `json:"id"`
	Slug           string      `json:"slug"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	Body           string      `json:"body"`
	TagList        []string    `json:"tagList"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
	Favorited      bool        `json:"favorited"`
	FavoritesCount int         `json:"favoritesCount"`
	Author         profileView `json:"author"`
}

type articleResponse struct {
	Article articleView `json:"article"`
}

type articleListResponse struct {
	Articles      []articleView `json:"articles"`
	ArticlesCount int           `json:"articlesCount"`
}

func newArticleView(d model.ArticleDetail) articleView {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	return articleView{
		ID:             d.Article.ID,
		Slug:           d.Article.Slug,
		Title:          d.Article.Title,
		Description:    d.Article.Description,
		Body:           d.Article.Body,
		TagList:        tags,
		CreatedAt:      d.Article.CreatedAt,
		UpdatedAt:      d.Article.UpdatedAt,
		Favorited:      d.Favorited,
		FavoritesCount: d.FavoritesCount,
		Author:         newProfileView(d.Author),
	}
}

// newArticleListResponse always yields a JSON array, never null.
func newArticleListResponse(details []model.ArticleDetail, count int) articleListResponse {
	views := make([]articleView, 0, len(details))
	for _, d := range details {
		views = append(views, newArticleView(d))
	}
	return articleListResponse{Articles: views, ArticlesCount: count}
}

type commentView struct {
	ID        string      `json:"id"`
	Body      string      `json:"body"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
	Author    profileView `json:"author"`
}

type commentResponse struct {
	Comment commentView `json:"comment"`
}

type commentListResponse struct {
	Comments []commentView `json:"comments"`
}

func newCommentView(c model.CommentDetail) commentView {
	return commentView{
		ID:        c.Comment.ID,
		Body:      c.Comment.Body,
		CreatedAt: c.Comment.CreatedAt,
		UpdatedAt: c.Comment.UpdatedAt,
		Author:    newProfileView(c.Author),
	}
}

func newCommentListResponse(comments []model.CommentDetail) commentListResponse {
	views := make([]commentView, 0, len(comments))
	for _, c := range comments {
		views = append(views, newCommentView(c))
	}
	return commentListResponse{Comments: views}
}

type tagListResponse struct {
	Tags []string `json:"tags"`
}
