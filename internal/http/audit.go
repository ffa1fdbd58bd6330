package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	auditrepo "github.com/mrlokans/library/internal/database/audit"
	"github.com/mrlokans/library/internal/entities"
)

const (
	defaultAuditLimit = 25
	maxAuditLimit     = 100
)

type AuditController struct {
	reader AuditReader
}

func NewAuditController(reader AuditReader) *AuditController {
	return &AuditController{reader: reader}
}

// GetAuditEvents handles GET /api/v1/audit?type=&entityId=&actorId=&limit=&offset=
func (ac *AuditController) GetAuditEvents(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultAuditLimit)))
	if err != nil || limit < 1 || limit > maxAuditLimit {
		limit = defaultAuditLimit
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	events, total, err := ac.reader.GetEvents(auditrepo.Query{
		EventType: entities.AuditEventType(c.Query("type")),
		EntityID:  c.Query("entityId"),
		ActorID:   c.Query("actorId"),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		respondInternalError(c, err, "list audit events")
		return
	}

	c.JSON(http.StatusOK, PaginatedResponse{
		Data:    events,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+len(events)) < total,
	})
}
