package server

import (
	"net/http"

	"github.com/a2a-go/runtime/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AgentCardService serves the agent discovery document. Hosts customize
// the card through the OnAgentCardQuery hook; without one, callers get a
// stub card.
type AgentCardService struct {
	logger       *zap.Logger
	agentURL     string
	capabilities AgentCapabilities
}

// NewAgentCardService builds the card service. agentURL is stamped into the
// default stub card and passed to OnAgentCardQuery.
func NewAgentCardService(logger *zap.Logger, agentURL string, capabilities AgentCapabilities) *AgentCardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgentCardService{
		logger:       logger,
		agentURL:     agentURL,
		capabilities: capabilities.WithDefaults(),
	}
}

// Card resolves the current AgentCard, invoking OnAgentCardQuery if set.
func (s *AgentCardService) Card(c *gin.Context) (types.AgentCard, error) {
	return s.capabilities.OnAgentCardQuery(c.Request.Context(), s.agentURL)
}

// Handle serves GET /.well-known/agent.json and GET /v1/card.
func (s *AgentCardService) Handle(c *gin.Context) {
	card, err := s.Card(c)
	if err != nil {
		s.logger.Error("agent card query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve agent card"})
		return
	}
	c.JSON(http.StatusOK, card)
}
