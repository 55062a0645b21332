package cmd

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/WuKongIM/wkframe/internal/options"
	"github.com/WuKongIM/wkframe/internal/server"
	"github.com/WuKongIM/wkframe/pkg/wklog"
	"github.com/fsnotify/fsnotify"
	"github.com/judwhite/go-svc"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile    string
	serverOpts = options.New()
	mode       string
	rootCmd    = &cobra.Command{
		Use:   "wkframe",
		Short: "wkframe, a connection-bounded TCP message server.",
		Long:  `wkframe, a connection-bounded TCP message server speaking a length-prefixed binary frame protocol.`,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		Run: func(cmd *cobra.Command, args []string) {
			initServer()
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file")
	rootCmd.PersistentFlags().StringVar(&mode, "mode", "debug", "mode")

	rootCmd.AddCommand(newClientCMD().CMD())
	rootCmd.AddCommand(newVersionCMD().CMD())
}

func initConfig() {
	vp := viper.New()
	if cfgFile != "" {
		vp.SetConfigFile(cfgFile)
		if err := vp.ReadInConfig(); err == nil {
			fmt.Println("Using config file:", vp.ConfigFileUsed())
		}
	}

	vp.SetEnvPrefix("wk_frame")
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()
	_ = vp.BindPFlag("mode", rootCmd.PersistentFlags().Lookup("mode"))
	// 初始化服务配置
	serverOpts.ConfigureWithViper(vp)

	if vp.ConfigFileUsed() != "" {
		// 配置文件变化时只热更新日志级别，其它配置需要重启
		vp.OnConfigChange(func(e fsnotify.Event) {
			if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
				return
			}
			level := serverOpts.LogLevel()
			wklog.SetLevel(level)
			wklog.Info("config changed, log level reloaded", zap.String("file", e.Name), zap.String("level", level.String()))
		})
		vp.WatchConfig()
	}
}

func initServer() {
	logOpts := wklog.NewOptions()
	logOpts.Level = serverOpts.Logger.Level
	logOpts.LogDir = serverOpts.Logger.Dir
	logOpts.LineNum = serverOpts.Logger.LineNum
	wklog.Configure(logOpts)
	defer wklog.Sync()

	s := server.New(serverOpts)

	if err := svc.Run(s); err != nil {
		log.Fatal(err)
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
