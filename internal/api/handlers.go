package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/victornm/tables/internal/domain"
	"github.com/victornm/tables/internal/errors"
	"github.com/victornm/tables/internal/score"
	"github.com/victornm/tables/internal/session"
)

type (
	LoginRequest struct {
		Username string `json:"username"`
	}

	User struct {
		Username  string    `json:"username"`
		LastLogin time.Time `json:"last_login"`
	}

	StartSessionRequest struct {
		Table     string `json:"table"`
		Operation string `json:"operation"`
	}

	SubmitAnswerRequest struct {
		Answer string `json:"answer"`
	}

	Session struct {
		ID         string `json:"id"`
		Username   string `json:"username"`
		Table      string `json:"table"`
		Operation  string `json:"operation"`
		Prompt     string `json:"prompt,omitempty"`
		Answered   int    `json:"answered"`
		Total      int    `json:"total"`
		Finished   bool   `json:"finished"`
		DurationMs int64  `json:"duration_ms,omitempty"`
		Recorded   bool   `json:"recorded"`
	}

	SubmitAnswerResponse struct {
		Correct bool    `json:"correct"`
		Session Session `json:"session"`
	}

	ListScoresResponse struct {
		Sort   string               `json:"sort"`
		Order  string               `json:"order"`
		Scores []domain.ScoreRecord `json:"scores"`
	}
)

func (a *API) Login(c *gin.Context) {
	var req LoginRequest
	if !bind(c, &req) {
		return
	}

	u, err := a.us.Login(c.Request.Context(), clientID(c), req.Username)
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, User(u))
}

func (a *API) Me(c *gin.Context) {
	u, err := a.us.Current(c.Request.Context(), clientID(c))
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, User(u))
}

func (a *API) Logout(c *gin.Context) {
	if err := a.us.Logout(c.Request.Context(), clientID(c)); err != nil {
		renderError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (a *API) StartSession(c *gin.Context) {
	var req StartSessionRequest
	if !bind(c, &req) {
		return
	}

	op, err := domain.ParseOperation(req.Operation)
	if err != nil {
		renderError(c, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("%v", err), errors.WithCause(err)))
		return
	}

	ctx := c.Request.Context()
	u, err := a.currentUser(c)
	if err != nil {
		renderError(c, err)
		return
	}

	ss, err := a.qss.Start(ctx, session.StartRequest{
		Username:  u.Username,
		Table:     req.Table,
		Operation: op,
	})
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toSession(ss))
}

func (a *API) GetSession(c *gin.Context) {
	ss, err := a.ownedSession(c)
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, toSession(ss))
}

func (a *API) EndSession(c *gin.Context) {
	if _, err := a.ownedSession(c); err != nil {
		renderError(c, err)
		return
	}

	if err := a.qss.End(c.Request.Context(), c.Param("id")); err != nil {
		renderError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (a *API) SubmitAnswer(c *gin.Context) {
	var req SubmitAnswerRequest
	if !bind(c, &req) {
		return
	}

	if _, err := a.ownedSession(c); err != nil {
		renderError(c, err)
		return
	}

	res, err := a.qss.Submit(c.Request.Context(), c.Param("id"), req.Answer)
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, SubmitAnswerResponse{
		Correct: res.Correct,
		Session: toSession(res.Session),
	})
}

// RecordScore retries saving the score of a finished session.
func (a *API) RecordScore(c *gin.Context) {
	if _, err := a.ownedSession(c); err != nil {
		renderError(c, err)
		return
	}

	ss, err := a.qss.Record(c.Request.Context(), c.Param("id"))
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, toSession(ss))
}

// ListScores returns the scores of one user, or of everyone without the
// username query, sorted by sort (table, duration, datetime) and order (asc, desc).
func (a *API) ListScores(c *gin.Context) {
	sorter := score.DefaultSorter()

	if v := c.Query("sort"); v != "" {
		key, err := domain.ParseSortKey(v)
		if err != nil {
			renderError(c, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("%v", err), errors.WithCause(err)))
			return
		}
		sorter = score.Sorter{Key: key, Ascending: score.DefaultAscending(key)}
	}

	switch strings.ToLower(c.Query("order")) {
	case "":
	case "asc":
		sorter.Ascending = true
	case "desc":
		sorter.Ascending = false
	default:
		renderError(c, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("invalid order %q", c.Query("order"))))
		return
	}

	var (
		ctx = c.Request.Context()
		rs  []domain.ScoreRecord
		err error
	)
	if username, ok := c.GetQuery("username"); ok {
		rs, err = a.ss.QueryForUser(ctx, username)
	} else {
		rs, err = a.ss.ListAll(ctx)
	}
	if err != nil {
		renderError(c, err)
		return
	}

	order := "desc"
	if sorter.Ascending {
		order = "asc"
	}

	c.JSON(http.StatusOK, ListScoresResponse{
		Sort:   string(sorter.Key),
		Order:  order,
		Scores: sorter.Sort(rs),
	})
}

// ClearScores removes the scores of the username query, or every score with all=true.
func (a *API) ClearScores(c *gin.Context) {
	username := strings.TrimSpace(c.Query("username"))
	if username == "" && c.Query("all") != "true" {
		renderError(c, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("username or all=true is required")))
		return
	}

	if err := a.ss.Clear(c.Request.Context(), username); err != nil {
		renderError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (a *API) GetLeaderboard(c *gin.Context) {
	if a.ls == nil {
		renderError(c, errors.New(errors.CodeUnavailable, errors.WithMessagef("leaderboard is not configured")))
		return
	}

	l, err := a.ls.GetLeaderboard(c.Request.Context(), c.Query("table"))
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, toLeaderboard(*l))
}

func toSession(ss session.Snapshot) Session {
	return Session{
		ID:         ss.ID,
		Username:   ss.Username,
		Table:      ss.Table,
		Operation:  string(ss.Operation),
		Prompt:     ss.Prompt,
		Answered:   ss.Answered,
		Total:      ss.Total,
		Finished:   ss.Finished,
		DurationMs: ss.DurationMs,
		Recorded:   ss.Recorded,
	}
}

func (a *API) currentUser(c *gin.Context) (domain.User, error) {
	u, err := a.us.Current(c.Request.Context(), clientID(c))
	if errors.HasCode(err, errors.CodeNotFound) {
		return domain.User{}, errors.New(errors.CodeUnauthenticated, errors.WithMessagef("login required"), errors.WithCause(err))
	}

	return u, err
}

// ownedSession returns the session of the id path param. Sessions of other
// users are reported as not found.
func (a *API) ownedSession(c *gin.Context) (session.Snapshot, error) {
	u, err := a.currentUser(c)
	if err != nil {
		return session.Snapshot{}, err
	}

	id := c.Param("id")
	ss, err := a.qss.Get(c.Request.Context(), id)
	if err != nil {
		return session.Snapshot{}, err
	}

	if ss.Username != u.Username {
		return session.Snapshot{}, errors.New(errors.CodeNotFound,
			errors.WithMessagef("session %s not found", id),
			errors.WithCause(session.ErrSessionNotFound),
		)
	}

	return ss, nil
}
