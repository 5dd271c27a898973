package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/vigilo-dev/vigilo/backend/internal/config"
	"github.com/vigilo-dev/vigilo/backend/internal/repository"
	"github.com/vigilo-dev/vigilo/backend/internal/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var op int
	var n int

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 插入随机保安, 2: 插入随机站点, 3: 插入随机待派班次)")
	flag.IntVar(&n, "n", 5, "要插入的记录数量")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 创建数据库连接池
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	// 创建 repository
	repo := repository.NewRepository(cfg, dbpool)

	// 执行操作
	switch op {
	case 0:
		slog.Error("未指定操作")
	case 1:
		if n <= 0 {
			slog.Error("请输入合法的保安数量")
		} else {
			cnt := n
			for i := 0; i < n; i++ {
				worker, err := utils.GenerateRandomWorker(cfg.Seed.Worker.Password, cfg.Email.UserDomain)
				if err != nil {
					slog.Error("无法生成随机保安", slog.String("error", err.Error()))
					continue
				}

				if err := repo.CreateWorker(worker); err != nil {
					slog.Error("无法插入保安", slog.String("error", err.Error()))
					continue
				}

				cnt--
			}

			slog.Info("插入保安成功", slog.Int("count", n-cnt))
		}
	case 2:
		if n <= 0 {
			slog.Error("请输入合法的站点数量")
		} else {
			cnt := n
			for i := 0; i < n; i++ {
				site := utils.GenerateRandomSite()
				if err := repo.CreateSite(site); err != nil {
					slog.Error("无法插入站点", slog.String("error", err.Error()))
					continue
				}

				cnt--
			}

			slog.Info("插入站点成功", slog.Int("count", n-cnt))
		}
	case 3:
		if n <= 0 {
			slog.Error("请输入合法的班次数量")
		} else {
			// 先获取所有站点
			sites, err := repo.GetAllSites()
			if err != nil {
				slog.Error("无法获取所有站点", slog.String("error", err.Error()))
				return
			}
			if len(sites) == 0 {
				slog.Error("数据库中没有站点，请先插入站点")
				return
			}

			cnt := n
			for i := 0; i < n; i++ {
				// 随机挑一个站点
				site := sites[rand.Intn(len(sites))]

				shift := utils.GenerateRandomShift(site.ID)
				if err := repo.CreateShift(shift); err != nil {
					slog.Error("无法插入班次", slog.String("error", err.Error()))
					continue
				}

				cnt--
			}

			slog.Info("插入班次成功", slog.Int("count", n-cnt))
		}
	default:
		slog.Error("指定的操作非法")
	}
}
