package models

import "errors"

// Result is the UI-facing outcome of a store operation. Errors never escape
// as panics; every operation can be rendered inline from a Result.
type Result struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Code      string `json:"code,omitempty"`
	Liked     *bool  `json:"liked,omitempty"`
	Following *bool  `json:"following,omitempty"`
	Saved     *bool  `json:"saved,omitempty"`
}

// ResultOf converts an operation error into a Result.
func ResultOf(err error) Result {
	if err == nil {
		return Result{Success: true}
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return Result{Success: false, Message: appErr.Message, Code: appErr.Code}
	}
	return Result{Success: false, Message: err.Error(), Code: CodeInternal}
}

// WithMessage sets the message of a successful result.
func (r Result) WithMessage(msg string) Result {
	if r.Success {
		r.Message = msg
	}
	return r
}

// LikeResult renders a like toggle outcome.
func LikeResult(liked bool, err error) Result {
	r := ResultOf(err)
	if err == nil {
		r.Liked = &liked
	}
	return r
}

// FollowResult renders a follow toggle outcome.
func FollowResult(following bool, err error) Result {
	r := ResultOf(err)
	if err == nil {
		r.Following = &following
		if following {
			r.Message = "به دنبال‌شونده‌ها اضافه شد."
		} else {
			r.Message = "از دنبال‌شونده‌ها حذف شد."
		}
	}
	return r
}

// SaveResult renders a save toggle outcome.
func SaveResult(saved bool, err error) Result {
	r := ResultOf(err)
	if err == nil {
		r.Saved = &saved
		if saved {
			r.Message = "به ذخیره‌ها اضافه شد."
		} else {
			r.Message = "از ذخیره‌ها حذف شد."
		}
	}
	return r
}
