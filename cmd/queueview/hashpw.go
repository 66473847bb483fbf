package main

import (
	"errors"
	"fmt"

	"github.com/orrn/queueview/internal/api/middleware"
)

type hashPasswordCommand struct {
	Args struct {
		Password string `positional-arg-name:"password" required:"yes"`
	} `positional-args:"yes"`
}

func (c *hashPasswordCommand) Execute(args []string) error {
	if c.Args.Password == "" {
		return errors.New("password must not be empty")
	}
	hash, err := middleware.HashPassword(c.Args.Password)
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}
