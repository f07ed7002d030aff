package telegram

import (
	"context"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"modelchat/internal/adapter/memory"
	"modelchat/internal/config"
	"modelchat/internal/domain"
	"modelchat/internal/usecase/chat"
)

type noGateway struct{}

func (noGateway) Send(context.Context, string, string) (string, error) {
	return "", nil
}

type failedGateway struct{}

func (failedGateway) Status() domain.GatewayStatus {
	return domain.GatewayStatus{State: domain.GatewayFailed, Reason: "no backends configured"}
}

var _ = Describe("splitText", func() {
	It("keeps short text whole", func() {
		Expect(splitText("short", 10)).To(Equal([]string{"short"}))
	})

	It("splits on rune boundaries", func() {
		text := strings.Repeat("й", 5)
		Expect(splitText(text, 2)).To(Equal([]string{"йй", "йй", "й"}))
	})

	It("ignores a non-positive chunk size", func() {
		Expect(splitText("abc", 0)).To(Equal([]string{"abc"}))
	})
})

var _ = Describe("isAllowedUser", func() {
	DescribeTable("allow-list",
		func(cfg config.Config, userID int64, expected bool) {
			Expect(isAllowedUser(userID, cfg)).To(Equal(expected))
		},
		Entry("open when no list", config.Config{}, int64(7), true),
		Entry("listed user", config.Config{AllowedUserIDs: []int64{7}}, int64(7), true),
		Entry("unlisted user", config.Config{AllowedUserIDs: []int64{7}}, int64(8), false),
		Entry("admin bypasses the list", config.Config{AdminUserIDs: []int64{8}, AllowedUserIDs: []int64{7}}, int64(8), true),
	)
})

var _ = Describe("commands", func() {
	var bot *Bot

	BeforeEach(func() {
		cfg := config.Config{
			DefaultModel: "fast",
			Models: []config.Model{
				{ID: "fast", Name: "Fast", Provider: config.ProviderOpenAI},
				{ID: "flash", Name: "Flash", Provider: config.ProviderGemini},
			},
		}
		svc := chat.NewService(memory.NewStore(), noGateway{}, failedGateway{}, cfg)
		bot = &Bot{cfg: cfg, chat: svc, model: svc.DefaultModel()}
	})

	It("lists models and marks the current one", func() {
		out := bot.handleCommand("models", "")
		Expect(out).To(ContainSubstring("* fast (Fast)"))
		Expect(out).To(ContainSubstring("  flash (Flash)"))
	})

	It("switches models", func() {
		Expect(bot.handleCommand("model", " flash ")).To(Equal("model set to flash"))
		Expect(bot.currentModel()).To(Equal("flash"))
		Expect(bot.handleCommand("model", "")).To(Equal("current model: flash"))
	})

	It("refuses unknown models", func() {
		Expect(bot.handleCommand("model", "nope")).To(ContainSubstring("unknown model"))
		Expect(bot.currentModel()).To(Equal("fast"))
	})

	It("reports the gateway status", func() {
		Expect(bot.handleCommand("status", "")).To(Equal("gateway: failed (no backends configured)"))
	})

	It("prints usage for anything else", func() {
		Expect(bot.handleCommand("start", "")).To(ContainSubstring("/models"))
	})
})
