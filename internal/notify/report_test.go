package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/minghuang/etfdca/internal/contracts"
)

func reportInput() ReportInput {
	return ReportInput{
		Date:   time.Date(2026, time.August, 31, 0, 0, 0, 0, time.UTC),
		FXRate: 7.13,
		Signal: &contracts.SignalResult{
			Trigger:        contracts.TriggerSecond,
			RecommendedCNY: 10000,
			ReserveBefore:  5000,
			ReserveUseCNY:  5000,
			Drawdown:       -0.06,
			DaysSinceLast:  6,
			CooldownOK:     true,
		},
		Snapshot: &contracts.MarketSnapshot{
			BenchmarkClose:     94,
			BenchmarkPrevClose: 95,
			MA200:              90,
			MonthHighClose:     100,
			Prices:             map[string]float64{"IWY": 212.33, "RSP": 94},
		},
		Orders: []contracts.Order{
			{Ticker: "IWY", Side: contracts.OrderSideBuy, Shares: 3, PriceUSD: 212.33, GrossUSD: 636.99, FeeUSD: 0.99},
		},
		TotalFeeUSD:   0.99,
		CashPoolStart: 12.5,
		CashPoolEnd:   8.2,
		BrokerResult:  "paper: wrote data/orders_2026-08-31.json",
		Portfolio:     []string{"IWY", "RSP"},
	}
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "ETF 自动交易日报 2026-08-31 Second", Subject(reportInput()))
}

func TestBuildReportWithTrade(t *testing.T) {
	body := BuildReport(reportInput())

	assert.Contains(t, body, "对应美股收盘交易日：2026-08-31")
	assert.Contains(t, body, "信号：Second")
	assert.Contains(t, body, "是否交易：交易")
	assert.Contains(t, body, "推荐买入总额：10000.00 CNY")
	assert.Contains(t, body, "IWY: 买入 3 股")
	assert.Contains(t, body, "月内回撤：-6.00%")
	assert.Contains(t, body, "本次使用：5000.00 CNY")
	assert.Contains(t, body, "paper: wrote")
	assert.Contains(t, body, "IWY=212.33, RSP=94.00")
}

func TestBuildReportNoTrade(t *testing.T) {
	in := reportInput()
	in.Orders = nil
	in.Signal.Trigger = contracts.TriggerNone
	in.Signal.RecommendedCNY = 0
	in.Message = "今日无交易信号（推荐买入=0）"

	body := BuildReport(in)

	assert.Contains(t, body, "是否交易：不交易")
	assert.Contains(t, body, "今日无下单")
	assert.Contains(t, body, "今日无交易信号")
	assert.NotContains(t, body, "买入 3 股")
}

func TestBuildReportFXFallbackNote(t *testing.T) {
	in := reportInput()
	in.FXFallbackUsed = true

	assert.Contains(t, BuildReport(in), "已使用备用值")
}

func TestBuildMessageEncodesSubject(t *testing.T) {
	msg := string(buildMessage("a@qq.com", "b@qq.com", "日报 Second", "正文"))

	assert.True(t, strings.HasPrefix(msg, "From: a@qq.com\r\n"))
	assert.Contains(t, msg, "Subject: =?utf-8?q?")
	assert.Contains(t, msg, "charset=utf-8")
	assert.Contains(t, msg, "正文")
}
