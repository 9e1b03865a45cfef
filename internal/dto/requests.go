package dto

// RegisterRequest описывает тело запроса регистрации.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Username string `json:"username"`
	Role     string `json:"role" binding:"omitempty,oneof=client freelancer"`
}

// LoginRequest описывает тело запроса входа.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest описывает тело запроса обновления токенов.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// CreateProjectRequest описывает тело запроса создания проекта.
type CreateProjectRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description" binding:"required"`
	BudgetMin   float64 `json:"budget_min" binding:"gte=0"`
	BudgetMax   float64 `json:"budget_max" binding:"required,gt=0"`
}

// SubmitProposalRequest описывает тело запроса отклика на проект.
type SubmitProposalRequest struct {
	CoverLetter string  `json:"cover_letter" binding:"required"`
	Amount      float64 `json:"amount" binding:"required,gt=0"`
}

// ReviewDeliverableRequest описывает тело запроса решения по результату работы.
type ReviewDeliverableRequest struct {
	Feedback *string `json:"feedback"`
}

// DepositRequest описывает тело запроса пополнения баланса.
type DepositRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

// WithdrawalRequest описывает тело запроса вывода средств.
type WithdrawalRequest struct {
	Amount    float64 `json:"amount" binding:"required,gt=0"`
	CardLast4 string  `json:"card_last4" binding:"required,len=4"`
	BankName  string  `json:"bank_name" binding:"required"`
}

// CreateReviewRequest описывает тело запроса отзыва по завершённому проекту.
type CreateReviewRequest struct {
	Rating  int     `json:"rating" binding:"required,min=1,max=5"`
	Comment *string `json:"comment"`
}
