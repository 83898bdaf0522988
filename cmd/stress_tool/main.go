package main

import (
	"flag"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// 压测：并发打开结账会话，走完 草稿 -> 填 UID -> 选商品 -> 读报价
var (
	baseURL   = flag.String("base", "http://localhost:8080", "server base url")
	sessions  = flag.Int("sessions", 1000, "concurrent checkout sessions")
	gameKey   = flag.String("game", "honkai-star-rail", "game key")
	productID = flag.Int64("product", 1, "product id")
	uid       = flag.String("uid", "812345678", "player uid")
	server    = flag.String("server", "asia", "server or region")
)

type apiResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func main() {
	flag.Parse()

	// 放大连接池，避免压测本身成为瓶颈
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 2000
	t.MaxIdleConnsPerHost = 2000
	t.MaxConnsPerHost = 2000

	client := resty.New().
		SetTransport(t).
		SetBaseURL(*baseURL).
		SetTimeout(10 * time.Second)

	fmt.Printf("开始压测：%d 个并发结账会话 (game=%s, product=%d)...\n", *sessions, *gameKey, *productID)

	var (
		wg        sync.WaitGroup
		success   int64
		failures  int64
		mu        sync.Mutex
		latencies = make([]time.Duration, 0, *sessions)
		firstErr  atomic.Value
	)

	start := time.Now()
	for i := 0; i < *sessions; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			t0 := time.Now()
			if err := runSession(client); err != nil {
				atomic.AddInt64(&failures, 1)
				firstErr.CompareAndSwap(nil, err.Error())
				return
			}
			atomic.AddInt64(&success, 1)
			mu.Lock()
			latencies = append(latencies, time.Since(t0))
			mu.Unlock()
		}()
	}
	wg.Wait()
	duration := time.Since(start)

	fmt.Println("--------------------------------------------------")
	fmt.Printf("压测结束，耗时: %v\n", duration)
	fmt.Printf("会话数: %d，成功: %d，失败: %d\n", *sessions, success, failures)
	fmt.Printf("会话/秒: %.2f\n", float64(*sessions)/duration.Seconds())
	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		fmt.Printf("P50: %v  P95: %v  P99: %v\n",
			percentile(latencies, 0.50), percentile(latencies, 0.95), percentile(latencies, 0.99))
	}
	if v := firstErr.Load(); v != nil {
		fmt.Printf("首个错误: %s\n", v)
	}
	fmt.Println("--------------------------------------------------")
}

func runSession(client *resty.Client) error {
	sid := uuid.New().String()
	steps := []struct {
		method string
		path   string
		body   interface{}
	}{
		{"POST", "/checkout/draft", map[string]interface{}{"gameKey": *gameKey}},
		{"PUT", "/checkout/draft/identity", map[string]interface{}{"uid": *uid, "server": *server}},
		{"PUT", "/checkout/draft/product", map[string]interface{}{"productId": *productID}},
		{"GET", "/checkout/draft", nil},
	}

	for _, s := range steps {
		var out apiResponse
		req := client.R().
			SetHeader("X-Checkout-Session", sid).
			SetResult(&out).
			SetError(&out)
		if s.body != nil {
			req.SetBody(s.body)
		}
		resp, err := req.Execute(s.method, s.path)
		if err != nil {
			return fmt.Errorf("%s %s: %w", s.method, s.path, err)
		}
		if resp.IsError() || out.Code != 0 {
			return fmt.Errorf("%s %s: http %d code %d %s", s.method, s.path, resp.StatusCode(), out.Code, out.Message)
		}
	}
	return nil
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}
