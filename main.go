package main

import (
	"os"

	"gptclone/cmd"
)

// @title        GPTClone API
// @version      1.0
// @description  多轮对话代理服务：对话与消息持久化，转发到 OpenAI 兼容模型。
// @BasePath     /
func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
