// Package social holds the client-side social state: accounts, explore
// posts, stories, follows and saves. Every store keeps its collection in
// memory, writes it synchronously to local storage on each mutation and,
// when a remote gateway is configured, reconciles with the remote
// collaborator in the background.
//
// Mutations never fail because of storage or network problems. They return
// a *models.AppError only when a store rule rejects the operation.
package social

import (
	"context"
	"log/slog"
	"time"

	"revayat/internal/models"
	"revayat/internal/observability"
	"revayat/internal/remote"
	"revayat/internal/seed"
	"revayat/internal/storage"

	"github.com/google/uuid"
)

// Options carries the ports shared by every store.
type Options struct {
	Storage   storage.KeyValue
	Remote    *remote.Gateway
	Clock     func() time.Time
	IDs       func() string
	Logger    *slog.Logger
	SeedPosts func(now time.Time) []models.ExplorePost
}

func (o Options) withDefaults() Options {
	if o.Storage == nil {
		o.Storage = storage.NewMemoryStore()
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.IDs == nil {
		o.IDs = uuid.NewString
	}
	if o.Logger == nil {
		o.Logger = observability.Logger
	}
	if o.SeedPosts == nil {
		o.SeedPosts = seed.Posts
	}
	return o
}

// Identity resolves the signed-in account.
type Identity interface {
	CurrentUser() (models.Account, bool)
}

// User-facing messages.
const (
	msgInvalidCredentials = "شماره یا رمز عبور نادرست است."
	msgMissingPhone       = "شماره تلفن وارد نشده است."
	msgDuplicatePhone     = "برای این شماره از قبل حسابی وجود دارد."
	msgDuplicateUsername  = "این نام کاربری قبلاً استفاده شده است."
	msgProtectedDelete    = "نمی‌توانید ادمین اصلی را حذف کنید."
	msgProtectedDemote    = "نمی‌توانید نقش ادمین اصلی را تغییر دهید."
	msgAlreadyAdmin       = "این حساب از قبل ادمین است."
	msgNotAdmin           = "این کاربر ادمین نیست."
	MsgPromoted           = "حساب با موفقیت به ادمین ارتقا یافت."
	MsgDemoted            = "حساب به کاربر عادی تبدیل شد."
	msgLikeUnauth         = "برای پسندیدن باید وارد شوید."
	msgCommentUnauth      = "برای ثبت نظر باید وارد شوید."
	msgEmptyComment       = "متن نظر خالی است."
	msgCreateUnauth       = "ابتدا وارد حساب شوید."
	msgMissingImage       = "عکس انتخاب نشده است."
	msgMissingCaption     = "کپشن را بنویسید."
	msgPostForbidden      = "فقط نویسنده می‌تواند این پست را تغییر دهد."
	msgMissingMedia       = "مدیا برای استوری انتخاب نشده است."
	msgStoryForbidden     = "فقط صاحب استوری می‌تواند آن را تغییر دهد."
	msgRepliesForbidden   = "پاسخ‌ها فقط برای صاحب استوری قابل مشاهده است."
	msgReplyUnauth        = "برای ارسال پاسخ باید وارد شوید."
	msgEmptyReply         = "متن پیام خالی است."
	msgFollowUnauth       = "برای دنبال کردن ابتدا وارد شوید."
	msgSelfFollow         = "نمی‌توانید خودتان را دنبال کنید."
	msgSaveUnauth         = "برای ذخیره محتوا ابتدا وارد حساب شوید."
	resourceAccount       = "حساب"
	resourcePost          = "پست"
	resourceStory         = "استوری"
)

func loadOrDefault(ctx context.Context, kv storage.KeyValue, log *observability.StoreLogger, key string, dest any) bool {
	ok, err := storage.LoadJSON(ctx, kv, key, dest)
	if err != nil {
		log.LogLoadFallback(ctx, key, err)
		return false
	}
	return ok
}

func persist(ctx context.Context, kv storage.KeyValue, log *observability.StoreLogger, key string, v any) {
	if err := storage.SaveJSON(ctx, kv, key, v); err != nil {
		log.LogPersistError(ctx, key, err)
	}
}
