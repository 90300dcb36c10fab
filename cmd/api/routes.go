package main

import (
	"net/http"

	"github.com/opinioncoins/backend/internal/middleware"
	"github.com/opinioncoins/backend/internal/reward"
	"github.com/opinioncoins/backend/internal/surveys"
	"github.com/opinioncoins/backend/internal/withdraw"
)

// RegisterV1Routes adds the /v1/ endpoints to the given mux. The survey and
// withdrawal routes sit behind JWT auth; the TheoremReach callback does not,
// since the network authenticates via the signed hash parameter. The callback
// route is registered without a method pattern because the handler answers
// GET, POST, and OPTIONS itself.
func RegisterV1Routes(
	mux *http.ServeMux,
	validator middleware.TokenValidator,
	surveysHandler *surveys.Handler,
	withdrawHandler *withdraw.Handler,
	rewardHandler *reward.Handler,
) {
	auth := middleware.UserAuth(validator)

	mux.Handle("GET /v1/surveys", auth(http.HandlerFunc(surveysHandler.ListSurveys)))
	mux.Handle("GET /v1/surveys/{id}", auth(http.HandlerFunc(surveysHandler.GetSurvey)))
	mux.Handle("POST /v1/surveys/{id}/responses", auth(http.HandlerFunc(surveysHandler.SubmitResponse)))

	mux.Handle("POST /v1/withdrawals", auth(http.HandlerFunc(withdrawHandler.CreateRequest)))
	mux.Handle("GET /v1/withdrawals", auth(http.HandlerFunc(withdrawHandler.ListRequests)))

	mux.HandleFunc("/v1/callbacks/theoremreach", rewardHandler.HandleCallback)
}
