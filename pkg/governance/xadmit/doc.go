// Package xadmit 提供请求治理门面，统一限速、路由与熔断。
//
// # 设计理念
//
// 门面组合限速治理器（xgovernor）与可选的路由池（xpool），
// 对外提供两层 API：
//
//   - Admit/Report：非阻塞原语。Admit 给出"等多久 + 走哪条路由"的
//     决策，调用方自行等待与执行；Report 把请求结果回灌给治理器
//     与路由池。
//   - Execute：阻塞便捷方法。内部完成等待、选路、执行、重试与
//     结果回报，等待与重试间隔都响应 context 取消。
//
// # 熔断
//
// 可选的按模式熔断器在 Execute 路径上消耗名额并记录结果：某个端点
// 模式连续失败达到阈值后，该模式的执行会快速失败一段时间，避免在
// 上游异常时继续消耗配额。Admit 只读地反映熔断状态——熔断器打开时
// 返回恢复时长、不选路由；Report 不经过熔断器。
//
// # 快速开始
//
//	gov, _ := xgovernor.New()
//	pool, _ := xpool.New()
//
//	facade, err := xadmit.New(gov,
//	    xadmit.WithPool(pool),
//	    xadmit.WithLogger(logger),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	err = facade.Execute(ctx, "/tweets/123", "US",
//	    func(ctx context.Context, route *xroute.Route) (xadmit.Result, error) {
//	        resp, err := callUpstream(ctx, route)
//	        if err != nil {
//	            return xadmit.Result{}, err
//	        }
//	        return xadmit.Result{
//	            QuotaLimit:     resp.RateLimit,
//	            QuotaRemaining: resp.RateRemaining,
//	            QuotaResetAt:   resp.RateReset,
//	        }, nil
//	    })
package xadmit
