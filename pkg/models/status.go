package models

// transitions maps a status to the statuses an admin may move it to.
type transitions[S ~string] map[S][]S

func (t transitions[S]) allows(from, to S) bool {
	for _, s := range t[from] {
		if s == to {
			return true
		}
	}
	return false
}

type TransferStatus string

const (
	TransferPending    TransferStatus = "pending"
	TransferProcessing TransferStatus = "processing"
	TransferCompleted  TransferStatus = "completed"
	TransferFailed     TransferStatus = "failed"
	TransferCancelled  TransferStatus = "cancelled"
)

var transferTransitions = transitions[TransferStatus]{
	TransferPending:    {TransferProcessing, TransferCompleted, TransferFailed, TransferCancelled},
	TransferProcessing: {TransferCompleted, TransferFailed, TransferCancelled},
}

func (s TransferStatus) CanTransitionTo(next TransferStatus) bool {
	return transferTransitions.allows(s, next)
}

// Reverses reports whether entering s undoes the balance movement of the transfer.
func (s TransferStatus) Reverses() bool {
	return s == TransferFailed || s == TransferCancelled
}

func (s TransferStatus) Valid() bool {
	switch s {
	case TransferPending, TransferProcessing, TransferCompleted, TransferFailed, TransferCancelled:
		return true
	}
	return false
}

type ApplicationStatus string

const (
	ApplicationPending        ApplicationStatus = "pending"
	ApplicationUnderReview    ApplicationStatus = "under_review"
	ApplicationApproved       ApplicationStatus = "approved"
	ApplicationRejected       ApplicationStatus = "rejected"
	ApplicationAdditionalInfo ApplicationStatus = "additional_info_required"
)

var applicationTransitions = transitions[ApplicationStatus]{
	ApplicationPending:        {ApplicationUnderReview, ApplicationApproved, ApplicationRejected, ApplicationAdditionalInfo},
	ApplicationUnderReview:    {ApplicationApproved, ApplicationRejected, ApplicationAdditionalInfo},
	ApplicationAdditionalInfo: {ApplicationUnderReview, ApplicationApproved, ApplicationRejected},
}

func (s ApplicationStatus) CanTransitionTo(next ApplicationStatus) bool {
	return applicationTransitions.allows(s, next)
}

func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationPending, ApplicationUnderReview, ApplicationApproved, ApplicationRejected, ApplicationAdditionalInfo:
		return true
	}
	return false
}

// RequestStatus is shared by deposit and withdrawal requests.
type RequestStatus string

const (
	RequestPending    RequestStatus = "pending"
	RequestProcessing RequestStatus = "processing"
	RequestCompleted  RequestStatus = "completed"
	RequestFailed     RequestStatus = "failed"
	RequestRejected   RequestStatus = "rejected"
)

var requestTransitions = transitions[RequestStatus]{
	RequestPending:    {RequestProcessing, RequestCompleted, RequestFailed, RequestRejected},
	RequestProcessing: {RequestCompleted, RequestFailed, RequestRejected},
}

func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	return requestTransitions.allows(s, next)
}

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestPending, RequestProcessing, RequestCompleted, RequestFailed, RequestRejected:
		return true
	}
	return false
}

type CardStatus string

const (
	CardPending   CardStatus = "pending"
	CardActive    CardStatus = "active"
	CardBlocked   CardStatus = "blocked"
	CardCancelled CardStatus = "cancelled"
)

var cardTransitions = transitions[CardStatus]{
	CardPending: {CardActive, CardCancelled},
	CardActive:  {CardBlocked, CardCancelled},
	CardBlocked: {CardActive, CardCancelled},
}

func (s CardStatus) CanTransitionTo(next CardStatus) bool {
	return cardTransitions.allows(s, next)
}

func (s CardStatus) Valid() bool {
	switch s {
	case CardPending, CardActive, CardBlocked, CardCancelled:
		return true
	}
	return false
}

type AccountStatus string

const (
	AccountPending   AccountStatus = "pending"
	AccountActive    AccountStatus = "active"
	AccountSuspended AccountStatus = "suspended"
	AccountClosed    AccountStatus = "closed"
)

type KycStatus string

const (
	KycPending  KycStatus = "pending"
	KycVerified KycStatus = "verified"
	KycRejected KycStatus = "rejected"
)

func (s KycStatus) Valid() bool {
	return s == KycPending || s == KycVerified || s == KycRejected
}

type ConversationStatus string

const (
	ConversationOpen       ConversationStatus = "open"
	ConversationInProgress ConversationStatus = "in_progress"
	ConversationResolved   ConversationStatus = "resolved"
	ConversationClosed     ConversationStatus = "closed"
)

func (s ConversationStatus) Valid() bool {
	switch s {
	case ConversationOpen, ConversationInProgress, ConversationResolved, ConversationClosed:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}
