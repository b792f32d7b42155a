package server

import (
	"github.com/a2a-go/runtime/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ResponseSender writes a JSON-RPC response to the wire, always as HTTP 200
// including error bodies. The REST surface maps errors to distinct HTTP
// statuses instead; the JSON-RPC surface keeps the error in the envelope.
type ResponseSender interface {
	SendSuccess(c *gin.Context, id any, result any)
	SendError(c *gin.Context, id any, agentErr *AgentError)
}

// DefaultResponseSender is the reference ResponseSender.
type DefaultResponseSender struct {
	logger *zap.Logger
}

var _ ResponseSender = (*DefaultResponseSender)(nil)

// NewDefaultResponseSender creates the reference sender.
func NewDefaultResponseSender(logger *zap.Logger) *DefaultResponseSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultResponseSender{logger: logger}
}

func (rs *DefaultResponseSender) SendSuccess(c *gin.Context, id any, result any) {
	c.JSON(200, types.JSONRPCSuccessResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	})
}

func (rs *DefaultResponseSender) SendError(c *gin.Context, id any, agentErr *AgentError) {
	c.JSON(200, types.JSONRPCErrorResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &types.JSONRPCError{
			Code:    int(agentErr.Code),
			Message: agentErr.Message,
		},
	})
	rs.logger.Error("json-rpc error response",
		zap.Int("code", int(agentErr.Code)),
		zap.String("message", agentErr.Message))
}
