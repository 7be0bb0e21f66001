package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/digijoe7/mezo-relayer/relayer"
)

// healthResponse reports the relayer identity and its funding state.
type healthResponse struct {
	OK           bool   `json:"ok"`
	Relayer      string `json:"relayer"`
	ChainID      int64  `json:"chainId"`
	Balance      string `json:"balance,omitempty"`
	BalanceError string `json:"balanceError,omitempty"`
}

// handleHealth reports the configured relayer address and chain id,
// plus the live balance when the node is reachable. It never fails the
// request: a balance read error is reported as a structured field.
func (s *Server) handleHealth(c *gin.Context) {
	resp := healthResponse{
		OK:      true,
		Relayer: s.relayer.RelayerAddress().Hex(),
		ChainID: s.relayer.ChainID(),
	}

	balance, err := s.relayer.RelayerBalance(c.Request.Context())
	if err != nil {
		resp.BalanceError = err.Error()
	} else {
		resp.Balance = balance.String()
	}

	c.JSON(http.StatusOK, resp)
}

// handleRelay decodes the relay request, runs the pipeline and maps
// the outcome onto the HTTP taxonomy.
func (s *Server) handleRelay(c *gin.Context) {
	var req relayer.RelayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if strings.Contains(err.Error(), "request body too large") {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": "request body too large",
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body: " + err.Error()})
		return
	}

	result, err := s.relayer.Relay(c.Request.Context(), &req)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "hash": result.TxHash.Hex()})
}

// statusForError maps the pipeline error taxonomy onto HTTP statuses.
func statusForError(err error) int {
	switch {
	case relayer.IsClientInputError(err):
		return http.StatusBadRequest
	case relayer.IsAuthorizationError(err):
		return http.StatusForbidden
	case relayer.IsInsufficientFundsError(err):
		return http.StatusPaymentRequired
	case relayer.IsConfigurationError(err):
		return http.StatusInternalServerError
	case relayer.IsSubmissionError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
