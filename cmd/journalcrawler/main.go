package main

import (
	_ "embed"

	"github.com/LouYuanbo1/journalcrawler/cmd/journalcrawler/cmd"
)

// 未指定 --config 时使用内嵌的配置
//
//go:embed appconfig/appconfig.json
var appConfig []byte

func main() {
	cmd.Execute(appConfig)
}
