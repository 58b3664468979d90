package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"

	"techanswers/internal/auth"
	"techanswers/internal/config"
	apphttp "techanswers/internal/http"
	"techanswers/internal/mail"
	"techanswers/internal/payment"
	"techanswers/internal/repository/sqlite"
	"techanswers/internal/service"
	"techanswers/internal/storage"
	"techanswers/internal/worker"
)

// app holds everything the commands share.
type app struct {
	db        *sql.DB
	mail      worker.Manager
	tokens    *auth.TokenManager
	services  apphttp.Services
	retention service.RetentionService
}

func buildApp(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*app, error) {
	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	repos := sqlite.NewRepositories(db)
	if err := repos.Init(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init repositories: %w", err)
	}

	storageSvc, err := buildStorage(ctx, cfg, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	mailQueue := worker.NewManager(worker.Config{
		Workers: cfg.Mail.Workers,
		Logger:  logger,
	}, buildMailer(cfg, logger))

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.TokenTTL())

	users := service.NewUserService(repos.Users, repos.Notifications, repos.TwoFactor, mailQueue, logger, service.UserConfig{
		ResetTTL:  cfg.ResetTTL(),
		PublicURL: cfg.Server.PublicURL,
	})
	guard := service.NewGuardService(repos.Bruteforce, service.GuardConfig{
		MaxAttempts: cfg.Security.MaxAttempts,
		Lockout:     cfg.LockoutDuration(),
	}, logger)
	twoFactor := service.NewTwoFactorService(repos.Users, repos.TwoFactor, mailQueue, logger, service.TwoFactorConfig{
		CodeTTL:    cfg.CodeTTL(),
		CodeDigits: cfg.TwoFactor.CodeDigits,
		SessionTTL: cfg.DeviceSessionTTL(),
	})
	analytics := service.NewAnalyticsService(repos.Analytics)
	notifications := service.NewNotificationService(repos.Notifications, repos.Subscriptions, repos.Users, repos.Categories, mailQueue, logger, cfg.Server.PublicURL)
	articles := service.NewArticleService(repos.Articles, repos.Categories, repos.Users, notifications, analytics, storageSvc, logger)
	invoices := service.NewInvoiceService(repos.Invoices, repos.Payments, repos.Users, storageSvc, logger)
	payments := service.NewPaymentService(buildGateway(cfg, logger), repos.Payments, repos.Articles, repos.Users, invoices, notifications, logger, service.PaymentConfig{
		Currency:  cfg.Stripe.Currency,
		PublicURL: cfg.Server.PublicURL,
	})

	return &app{
		db:     db,
		mail:   mailQueue,
		tokens: tokens,
		services: apphttp.Services{
			Users:         users,
			Auth:          service.NewAuthService(users, guard, twoFactor, tokens, logger),
			TwoFactor:     twoFactor,
			Guard:         guard,
			Articles:      articles,
			Categories:    service.NewCategoryService(repos.Categories),
			Comments:      service.NewCommentService(repos.Comments, repos.Ratings, articles, notifications),
			Notifications: notifications,
			Contacts:      service.NewContactService(repos.Contacts, mailQueue, logger, cfg.Mail.AdminEmail),
			Payments:      payments,
			Invoices:      invoices,
			Analytics:     analytics,
			Admin:         service.NewAdminService(repos.Users, repos.Articles, repos.Comments, repos.Payments, repos.Analytics, cfg.Stripe.Currency),
		},
		retention: service.NewRetentionService(repos.Notifications, repos.TwoFactor, repos.Bruteforce, repos.Users, cfg.NotificationRetention()),
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

func buildMailer(cfg config.Config, logger *logrus.Logger) mail.Mailer {
	if cfg.SMTP.Host == "" {
		logger.Warn("smtp host not set, emails are logged instead of sent")
		return &mail.LogMailer{Logger: logger}
	}
	return mail.NewSMTPMailer(mail.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})
}

// buildGateway returns a nil interface when Stripe is not configured so the
// payment service answers 503.
func buildGateway(cfg config.Config, logger *logrus.Logger) payment.Gateway {
	if cfg.Stripe.SecretKey == "" && cfg.Stripe.WebhookSecret == "" && !cfg.Stripe.SkipSignature {
		logger.Warn("stripe is not configured, payments are disabled")
		return nil
	}
	return payment.NewStripeGateway(payment.StripeConfig{
		SecretKey:     cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		SkipSignature: cfg.Stripe.SkipSignature && !cfg.IsProduction(),
	})
}

// buildStorage returns a nil interface when no bucket is configured; invoices
// are then rendered on demand and cover uploads are refused.
func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	if cfg.Storage.Bucket == "" {
		logger.Warn("storage bucket not set, object storage is disabled")
		return nil, nil
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("using s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Service(client, storage.S3Config{
		Bucket:    cfg.Storage.Bucket,
		KeyPrefix: cfg.Storage.KeyPrefix,
		PublicURL: cfg.Storage.PublicURL,
	}), nil
}
