package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"veinwise/internal/repository"
	"veinwise/internal/service"
)

type createUserFlags struct {
	email  string
	name   string
	phone  string
	gender string
	age    int
}

func (f createUserFlags) validate() error {
	if f.email == "" || f.name == "" || f.phone == "" || f.gender == "" {
		return errors.New("--email, --name, --phone and --gender are required")
	}
	if f.age <= 0 {
		return errors.New("--age must be positive")
	}
	return nil
}

func createUserCmd() *cobra.Command {
	var flags createUserFlags

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a doctor account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.validate(); err != nil {
				return err
			}
			password, err := promptPassword(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			auth := service.NewAuthService(zap.NewNop(), repository.NewPgUserRepository(pool), nil, nil, nil, nil, false)
			user, err := auth.CreateUser(ctx, service.RegisterInput{
				Name:     flags.name,
				Phone:    flags.phone,
				Gender:   flags.gender,
				Age:      flags.age,
				Email:    flags.email,
				Password: password,
			})
			if errors.Is(err, service.ErrEmailInUse) {
				return fmt.Errorf("email %s already in use", flags.email)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s)\n", user.ID, user.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.email, "email", "", "Account email")
	cmd.Flags().StringVar(&flags.name, "name", "", "Display name")
	cmd.Flags().StringVar(&flags.phone, "phone", "", "Phone number")
	cmd.Flags().StringVar(&flags.gender, "gender", "", "Male, Female or Other")
	cmd.Flags().IntVar(&flags.age, "age", 0, "Age in years")

	return cmd
}
