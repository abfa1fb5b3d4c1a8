package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"

	"github.com/intelligentbasedhms/hms-gateway/internal/domain"
	"github.com/intelligentbasedhms/hms-gateway/internal/services"
	"github.com/intelligentbasedhms/hms-gateway/internal/utils"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ListThreadsResponse lists every known thread id.
type ListThreadsResponse struct {
	Threads []string `json:"threads" example:"5b3c1f0e-8d7a-4a53-9a51-1c6f3e0b2d4e"`
}

// ListMessagesResponse is one page of a thread's history, oldest first.
type ListMessagesResponse struct {
	ThreadID   string           `json:"thread_id"`
	Messages   []domain.Message `json:"messages"`
	Pagination Pagination       `json:"pagination"`
}

// threadsETag derives a weak validator from the id list. Any change to the
// set or order of ids changes the hash.
func threadsETag(ids []string) string {
	sum := xxhash.Sum64String(strings.Join(ids, "\n"))
	return fmt.Sprintf(`W/"threads:%d:%016x"`, len(ids), sum)
}

// ListThreads godoc
// @ID          listThreads
// @Summary     List conversation threads
// @Description Returns the id of every thread known to the engine. Supports a weak ETag via If-None-Match.
// @Tags        Threads
// @Produce     json
//
// @Param       If-None-Match  header  string  false  "Return 304 if the ETag matches"
//
// @Success     200  {object}  handlers.ListThreadsResponse
// @Header      200  {string}  ETag  "Weak ETag of the id list"
// @Success     304  {string}  string  "Not Modified"
// @Failure     500  {object}  handlers.ErrorResponse  "Listing failed"
// @Router      /threads [get]
func (h *Handlers) ListThreads(c *gin.Context) {
	ids, err := h.threads.List(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if ids == nil {
		ids = []string{}
	}

	etag := threadsETag(ids)
	c.Header("ETag", etag)
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		c.Status(http.StatusNotModified)
		return
	}
	ok(c, http.StatusOK, ListThreadsResponse{Threads: ids})
}

// ListMessages godoc
// @ID          listThreadMessages
// @Summary     List a thread's messages (paginated)
// @Description Returns a page of the thread's messages, oldest first. Supports a weak ETag via If-None-Match.
// @Tags        Threads
// @Produce     json
//
// @Param       id             path    string  true   "Thread ID"
// @Param       If-None-Match  header  string  false  "Return 304 if the ETag matches"
// @Param       page           query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListMessagesResponse
// @Header      200  {string}  ETag  "Weak ETag for the page"
// @Success     304  {string}  string  "Not Modified"
// @Failure     404  {object}  handlers.ErrorResponse  "Thread not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Listing failed"
// @Router      /threads/{id}/messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()
	threadID := c.Param("id")
	page, pageSize := utils.ClampPage(c.Query("page"), c.Query("page_size"), defaultPageSize, maxPageSize)

	// ETag pre-check (best effort).
	if n, maxTS, err := h.threads.Version(ctx, threadID); err == nil && n > 0 {
		var ts int64
		if maxTS != nil {
			ts = maxTS.UnixNano()
		}
		etag := fmt.Sprintf(`W/"messages:%s:%d:%d:%d:%d"`, threadID, n, ts, page, pageSize)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, total, err := h.threads.History(ctx, threadID, page, pageSize)
	if err != nil {
		if errors.Is(err, services.ErrThreadNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "thread not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if items == nil {
		items = []domain.Message{}
	}

	totalPages := utils.TotalPages(total, pageSize)
	ok(c, http.StatusOK, ListMessagesResponse{
		ThreadID: threadID,
		Messages: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}
