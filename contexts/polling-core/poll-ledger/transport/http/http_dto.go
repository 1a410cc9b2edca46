package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreatePollRequest struct {
	Question        string   `json:"question"`
	Options         []string `json:"options"`
	FeePerVote      uint64   `json:"fee_per_vote"`
	DurationSeconds int64    `json:"duration_seconds"`
	Sponsor         string   `json:"sponsor,omitempty"`
	SponsorFee      uint64   `json:"sponsor_fee,omitempty"`
	Payment         uint64   `json:"payment"`
}

type EditPollRequest struct {
	Question        string   `json:"question"`
	Options         []string `json:"options"`
	DurationSeconds int64    `json:"duration_seconds"`
}

type PollResponse struct {
	PollID          uint64   `json:"poll_id"`
	Creator         string   `json:"creator"`
	Question        string   `json:"question"`
	Options         []string `json:"options"`
	VoteCounts      []uint64 `json:"vote_counts"`
	TotalVotes      uint64   `json:"total_votes"`
	Open            bool     `json:"open"`
	CreatedAt       string   `json:"created_at"`
	ClosedAt        string   `json:"closed_at,omitempty"`
	EndTime         string   `json:"end_time,omitempty"`
	FeePerVote      uint64   `json:"fee_per_vote"`
	BuilderShareBps uint64   `json:"builder_share_bps"`
	TotalVoteFees   uint64   `json:"total_vote_fees"`
	BuilderFees     uint64   `json:"builder_fees"`
	CreatorFees     uint64   `json:"creator_fees"`
	Sponsor         string   `json:"sponsor,omitempty"`
	SponsorFee      uint64   `json:"sponsor_fee,omitempty"`
	ContentHash     string   `json:"content_hash"`
}

type PollListResponse struct {
	Items []PollResponse `json:"items"`
}

type PollStatusResponse struct {
	PollID uint64 `json:"poll_id"`
	Open   bool   `json:"open"`
}

type VoteRequest struct {
	OptionIndex int    `json:"option_index"`
	Payment     uint64 `json:"payment"`
}

type VoteResponse struct {
	Poll        PollResponse `json:"poll"`
	BuilderCut  uint64       `json:"builder_cut"`
	CreatorCut  uint64       `json:"creator_cut"`
	TierChanged bool         `json:"tier_changed"`
	Tier        string       `json:"tier"`
}

type OptionResponse struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
	Votes uint64 `json:"votes"`
}

type OptionsResponse struct {
	PollID uint64           `json:"poll_id"`
	Items  []OptionResponse `json:"items"`
}

type CreatorPollsResponse struct {
	Account string   `json:"account"`
	PollIDs []uint64 `json:"poll_ids"`
}

type CreatorStatsResponse struct {
	Account            string `json:"account"`
	PollCount          int    `json:"poll_count"`
	TotalVotesReceived uint64 `json:"total_votes_received"`
	Tier               string `json:"tier"`
	Withdrawable       uint64 `json:"withdrawable"`
}

type QuotaResponse struct {
	Account string `json:"account"`
	Count   int    `json:"count"`
}

type WithdrawResponse struct {
	Account string `json:"account"`
	Amount  uint64 `json:"amount"`
}

type SetFeesRequest struct {
	CreateFee       uint64 `json:"create_fee"`
	BuilderShareBps uint64 `json:"builder_share_bps"`
}

type SetPausedRequest struct {
	Paused bool `json:"paused"`
}

type SetDailyLimitRequest struct {
	Limit int `json:"limit"`
}

type SetAllowListRequest struct {
	Account string `json:"account"`
	Allowed bool   `json:"allowed"`
}

type OperatorTransferRequest struct {
	Account string `json:"account"`
}
